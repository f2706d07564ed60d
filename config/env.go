package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvChainID          = "CHAIN_ID"
	EnvChainName        = "CHAIN_NAME"
	EnvChainRPCEndpoint = "CHAIN_RPC_ENDPOINT"
	EnvFeeDenom         = "FEE_DENOM"
	EnvDenomName        = "DENOM_NAME"
	EnvContractAddr     = "CONTRACT_ADDR"
	EnvUSDCSwapAddr     = "USDC_SWAP_ADDR"
	EnvAddressPrefix    = "ADDRESS_PREFIX"
	EnvDenomExponent    = "DENOM_EXPONENT"
	EnvExplorerTxPrefix = "EXPLORER_TX_PREFIX"
	EnvGasPrice         = "GAS_PRICE"
	EnvWalletMnemonic   = "WALLET_MNEMONIC"
	EnvWalletStatePath  = "WALLET_STATE_PATH"
	EnvHTTPAddr         = "HTTP_ADDR"
)

// LoadEnv loads environment variables from the given .env files (or ./.env).
// A missing file is not an error.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
