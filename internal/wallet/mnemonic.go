package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic is returned for phrases that fail the BIP-39 checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// NewMnemonic generates a fresh 12-word phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// DeriveKey returns the hex private key at m/44'/60'/0'/0/index and the
// path used.
func DeriveKey(mnemonic, passphrase string, index uint32) (string, string, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return "", "", fmt.Errorf("master key: %w", err)
	}
	for _, idx := range []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + 60,
		bip32.FirstHardenedChild + 0,
		0,
		index,
	} {
		key, err = key.NewChildKey(idx)
		if err != nil {
			return "", "", fmt.Errorf("derive child %d: %w", idx, err)
		}
	}
	return hex.EncodeToString(key.Key), fmt.Sprintf("m/44'/60'/0'/0/%d", index), nil
}
