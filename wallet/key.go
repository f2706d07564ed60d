package wallet

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/bech32"
	"github.com/btcsuite/btcutil/hdkeychain"
	bip39 "github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrNoMnemonic      = errors.New("no wallet mnemonic configured")
	ErrInvalidMnemonic = errors.New("invalid wallet mnemonic")
)

// CoinType is the SLIP-44 coin type shared by Cosmos SDK chains.
const CoinType = 118

// Account is a secp256k1 key derived at m/44'/118'/0'/0/0.
type Account struct {
	Address string
	PubKey  []byte
	key     *ecdsa.PrivateKey
}

// DeriveAccount derives the first account of mnemonic and encodes its
// address with the bech32 prefix.
func DeriveAccount(mnemonic, prefix string) (*Account, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if mnemonic == "" {
		return nil, ErrNoMnemonic
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}

	// the network params only affect extended key serialization
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + CoinType,
		hdkeychain.HardenedKeyStart + 0,
		0,
		0,
	}
	for _, index := range path {
		key, err = key.Child(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child key: %w", err)
		}
	}

	ecPriv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}
	priv := ecPriv.ToECDSA()
	pub := crypto.CompressPubkey(&priv.PublicKey)

	address, err := EncodeAddress(prefix, btcutil.Hash160(pub))
	if err != nil {
		return nil, err
	}
	return &Account{Address: address, PubKey: pub, key: priv}, nil
}

// EncodeAddress bech32-encodes raw address bytes.
func EncodeAddress(prefix string, raw []byte) (string, error) {
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	address, err := bech32.Encode(prefix, conv)
	if err != nil {
		return "", fmt.Errorf("failed to encode address: %w", err)
	}
	return address, nil
}

// Sign signs the SHA-256 digest of signBytes and returns the 64 byte r||s
// signature used by Cosmos SDK transactions.
func (a *Account) Sign(signBytes []byte) ([]byte, error) {
	digest := sha256.Sum256(signBytes)
	sig, err := crypto.Sign(digest[:], a.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return sig[:64], nil
}

// Verify checks a signature produced by Sign.
func (a *Account) Verify(signBytes, sig []byte) bool {
	digest := sha256.Sum256(signBytes)
	return crypto.VerifySignature(a.PubKey, digest[:], sig)
}
