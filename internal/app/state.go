package app

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3burn/internal/connector"
	"github.com/Mohsinsiddi/w3burn/internal/env"
	"github.com/Mohsinsiddi/w3burn/internal/token"
	"github.com/Mohsinsiddi/w3burn/internal/units"
	"github.com/Mohsinsiddi/w3burn/internal/workflow"
)

// State is the session as the user sees it.
type State struct {
	Env      env.Variant
	Conn     connector.State
	Contract string
	Token    *token.Info
	Amount   string
	Status   workflow.Status
	Busy     bool
	// Warning is a non-fatal problem such as a failed network switch.
	Warning string
}

// Action is an input to Reduce.
type Action interface{ action() }

type (
	// EnvDetected records the classified environment.
	EnvDetected struct{ Variant env.Variant }
	// Connected replaces the connection. Token state is discarded.
	Connected struct {
		State   connector.State
		Warning string
	}
	// Disconnected clears the connection and everything derived from it.
	Disconnected struct{}
	// AccountsChanged reports the provider's new account list.
	AccountsChanged struct{ Accounts []common.Address }
	// ChainChanged reports that the provider moved to another chain.
	ChainChanged struct{ ChainID int64 }
	// ContractSet records a contract address input.
	ContractSet struct{ Address string }
	// TokenLoaded publishes a token read by Account for the current
	// contract.
	TokenLoaded struct {
		Account common.Address
		Info    token.Info
	}
	// AmountSet records the burn amount input.
	AmountSet struct{ Amount string }
	// StageChanged mirrors a workflow transition.
	StageChanged struct{ Event workflow.Event }
	// RunFinished ends a workflow run started by Account.
	RunFinished struct {
		Op      string
		Account common.Address
		Result  workflow.Result
	}
	// Failed shows err as the status.
	Failed struct{ Err error }
)

func (EnvDetected) action()     {}
func (Connected) action()       {}
func (Disconnected) action()    {}
func (AccountsChanged) action() {}
func (ChainChanged) action()    {}
func (ContractSet) action()     {}
func (TokenLoaded) action()     {}
func (AmountSet) action()       {}
func (StageChanged) action()    {}
func (RunFinished) action()     {}
func (Failed) action()          {}

// Reduce returns the state after applying a. It never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case EnvDetected:
		s.Env = a.Variant
	case Connected:
		s = State{Env: s.Env, Conn: a.State, Contract: s.Contract, Warning: a.Warning}
	case Disconnected:
		s = State{Env: s.Env, Contract: s.Contract}
	case AccountsChanged:
		if len(a.Accounts) == 0 {
			return State{Env: s.Env, Contract: s.Contract}
		}
		if s.Conn.Connected() && a.Accounts[0] != s.Conn.Account {
			// The new account is connected afresh; nothing of the old one survives.
			return State{Env: s.Env, Contract: s.Contract}
		}
	case ChainChanged:
		return State{Env: s.Env}
	case ContractSet:
		s.Contract = strings.TrimSpace(a.Address)
		s.Token = nil
		s.Amount = ""
	case TokenLoaded:
		if !s.Conn.Connected() || a.Account != s.Conn.Account {
			return s
		}
		if !units.IsAddress(s.Contract) || common.HexToAddress(s.Contract) != a.Info.Address {
			return s
		}
		info := a.Info
		s.Token = &info
	case AmountSet:
		s.Amount = strings.TrimSpace(a.Amount)
	case StageChanged:
		s.Status = a.Event.Status
		s.Busy = !a.Event.Stage.Terminal() && a.Event.Stage != workflow.Idle
	case RunFinished:
		s.Busy = false
		s.Status = a.Result.Status
		if a.Result.Stage == workflow.Succeeded && a.Op == workflow.OpBurn {
			if s.Token != nil && s.Token.Address == a.Result.Token.Address && a.Account == s.Conn.Account {
				info := a.Result.Token
				s.Token = &info
			}
			s.Amount = ""
		}
	case Failed:
		s.Busy = false
		s.Status = workflow.Failure(ErrorMessage(a.Err))
	}
	return s
}

// ErrorMessage renders err for the status line.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *units.ValidationError
	if errors.As(err, &ve) {
		switch {
		case errors.Is(err, units.ErrInvalidAddress):
			return "Please enter a valid contract address"
		case errors.Is(err, units.ErrInsufficientBalance):
			return "Insufficient balance"
		case errors.Is(err, units.ErrNoBalance):
			return "No balance to burn"
		default:
			return "Please enter a valid amount to burn"
		}
	}
	var te *token.Error
	if errors.As(err, &te) && te.Kind != token.BurnUnsupported {
		return (&token.Error{Kind: te.Kind}).Error()
	}
	return err.Error()
}
