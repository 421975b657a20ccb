package bridge

import "fmt"

// Source tags every message this application sends.
const Source = "base-coin-burner"

// Message types exchanged with the host.
const (
	TypeConnectWallet    = "CONNECT_WALLET"
	TypeWalletConnected  = "WALLET_CONNECTED"
	TypeWalletError      = "WALLET_ERROR"
	TypeRequestProvider  = "REQUEST_WALLET_PROVIDER"
	TypeProviderResponse = "WALLET_PROVIDER_RESPONSE"
)

// ProviderInfo describes a wallet provider handed over by the host.
// An empty URL means the host signs for the account itself and reads go
// through the network RPC.
type ProviderInfo struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Message is one newline-delimited JSON frame on the bridge.
type Message struct {
	Type     string        `json:"type"`
	ID       string        `json:"id,omitempty"`
	Source   string        `json:"source,omitempty"`
	Origin   string        `json:"origin,omitempty"`
	Target   string        `json:"target,omitempty"`
	Address  string        `json:"address,omitempty"`
	Provider *ProviderInfo `json:"provider,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// HostError is a WALLET_ERROR reported by the host.
type HostError struct {
	Message string
}

func (e *HostError) Error() string {
	if e.Message == "" {
		return "host wallet error"
	}
	return fmt.Sprintf("host wallet error: %s", e.Message)
}
