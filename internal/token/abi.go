package token

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"golang.org/x/crypto/sha3"
)

// burnableABI is the ERC20 read surface plus the burn and ownership
// methods this tool calls.
const burnableABI = `[
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"burnFrom","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"revokeOwnership","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

// ABI is the parsed contract interface.
var ABI = mustParse(burnableABI)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Selector returns the 0x-prefixed 4-byte selector of a canonical function
// signature such as "burn(uint256)".
func Selector(signature string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return "0x" + hex.EncodeToString(h.Sum(nil)[:4])
}

// Burn entry points, in the order a burn tries them.
const (
	SigBurn     = "burn(uint256)"
	SigBurnFrom = "burnFrom(address,uint256)"
)

// BurnMethods describes the burn entry points with their selectors, e.g.
// "burn 0x42966c68, burnFrom 0x79cc6790".
func BurnMethods() string {
	parts := make([]string, 0, 2)
	for _, sig := range []string{SigBurn, SigBurnFrom} {
		parts = append(parts, fmt.Sprintf("%s %s", sig[:strings.IndexByte(sig, '(')], Selector(sig)))
	}
	return strings.Join(parts, ", ")
}
