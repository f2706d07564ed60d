package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// state is persisted between runs so a previously connected wallet is
// reconnected automatically.
type state struct {
	ConnectedWalletID string `yaml:"connectedWalletId,omitempty"`
}

func loadState(path string) (state, error) {
	var st state
	if path == "" {
		return st, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("failed to read wallet state: %w", err)
	}
	if err := yaml.Unmarshal(raw, &st); err != nil {
		return st, fmt.Errorf("failed to decode wallet state: %w", err)
	}
	return st, nil
}

func saveState(path string, st state) error {
	if path == "" {
		return nil
	}
	if st.ConnectedWalletID == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove wallet state: %w", err)
		}
		return nil
	}

	raw, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode wallet state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create wallet state dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write wallet state: %w", err)
	}
	return nil
}
