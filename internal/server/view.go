package server

import (
	"github.com/Mohsinsiddi/w3burn/internal/app"
	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/token"
	"github.com/Mohsinsiddi/w3burn/internal/workflow"
)

// StateView is the JSON form of app.State.
type StateView struct {
	Environment string          `json:"environment"`
	Connected   bool            `json:"connected"`
	Account     string          `json:"account,omitempty"`
	ShortAcct   string          `json:"short_account,omitempty"`
	Wallet      string          `json:"wallet,omitempty"`
	Variant     string          `json:"variant"`
	ChainID     int64           `json:"chain_id,omitempty"`
	Network     string          `json:"network,omitempty"`
	Contract    string          `json:"contract,omitempty"`
	Token       *token.Info     `json:"token,omitempty"`
	Amount      string          `json:"amount"`
	Status      workflow.Status `json:"status"`
	Busy        bool            `json:"busy"`
	Warning     string          `json:"warning,omitempty"`
}

// NewStateView renders s. Networks outside the registry leave Network empty.
func NewStateView(s app.State, networks *chain.Registry) StateView {
	v := StateView{
		Environment: s.Env.String(),
		Connected:   s.Conn.Connected(),
		Variant:     s.Conn.Variant.String(),
		Contract:    s.Contract,
		Token:       s.Token,
		Amount:      s.Amount,
		Status:      s.Status,
		Busy:        s.Busy,
		Warning:     s.Warning,
	}
	if v.Connected {
		v.Account = s.Conn.Account.Hex()
		v.ShortAcct = s.Conn.ShortAccount()
		v.Wallet = s.Conn.Label
		v.ChainID = s.Conn.ChainID
		if n, err := networks.GetByChainID(s.Conn.ChainID); err == nil {
			v.Network = n.Label()
		}
	}
	return v
}

// RunView is the JSON form of a finished workflow run.
type RunView struct {
	Stage  string          `json:"stage"`
	Status workflow.Status `json:"status"`
	Method string          `json:"method,omitempty"`
	Hash   string          `json:"hash,omitempty"`
	State  StateView       `json:"state"`
}
