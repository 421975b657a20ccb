package connector

import (
	"github.com/ethereum/go-ethereum/common"
)

// Variant is the connection method that produced a State.
type Variant int

const (
	None Variant = iota
	StandardProvider
	SmartWalletSDK
	EmbeddedHostBridge
)

func (v Variant) String() string {
	switch v {
	case StandardProvider:
		return "standard-provider"
	case SmartWalletSDK:
		return "smart-wallet"
	case EmbeddedHostBridge:
		return "embedded-host-bridge"
	default:
		return "none"
	}
}

// State is a wallet connection. The zero value is disconnected; a
// connected State has every field set.
type State struct {
	Account common.Address
	ChainID int64
	Variant Variant
	Signer  Signer
	// RPCURL serves contract reads and receipt polling.
	RPCURL string
	// Label names the wallet type for display.
	Label string
}

// Connected reports whether s holds a live connection.
func (s State) Connected() bool { return s.Variant != None }

// ShortAccount renders the account as 0x1234...abcd.
func (s State) ShortAccount() string {
	if !s.Connected() {
		return ""
	}
	return ShortAddress(s.Account.Hex())
}

// ShortAddress renders a hex address as its first 6 and last 4 characters.
func ShortAddress(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
