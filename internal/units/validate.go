package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Validation errors.
var (
	ErrInvalidAddress      = errors.New("please enter a valid contract address")
	ErrInvalidAmount       = errors.New("please enter a valid amount to burn")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoBalance           = errors.New("no balance to burn")
)

// ValidationError reports a malformed user input.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsAddress reports whether s is a 0x-prefixed 20-byte hex address. Mixed-case
// input must carry a valid EIP-55 checksum.
func IsAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	if !common.IsHexAddress(s) {
		return false
	}
	body := s[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex() == "0x"+body
}

// ParseAddress validates s and returns it as an address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !IsAddress(s) {
		return common.Address{}, &ValidationError{Field: "address", Value: s, Err: ErrInvalidAddress}
	}
	return common.HexToAddress(s), nil
}

// ValidateAmount checks that amount is a positive number that does not exceed
// balance, comparing in base units so high-decimal tokens compare exactly.
// It returns the amount in base units.
func ValidateAmount(amount string, balance *big.Int, decimals uint8) (*big.Int, error) {
	raw, err := ToBaseUnits(amount, decimals)
	if err != nil {
		return nil, err
	}
	if raw.Sign() <= 0 {
		return nil, &ValidationError{Field: "amount", Value: amount, Err: ErrInvalidAmount}
	}
	if balance != nil && raw.Cmp(balance) > 0 {
		return nil, &ValidationError{Field: "amount", Value: amount, Err: ErrInsufficientBalance}
	}
	return raw, nil
}
