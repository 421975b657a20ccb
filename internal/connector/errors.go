package connector

import (
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/w3burn/internal/bridge"
)

// Kind classifies a connection failure.
type Kind int

const (
	NoProviderFound Kind = iota + 1
	NoAccountsFound
	UserRejected
	Timeout
	HostBridgeError
)

func (k Kind) String() string {
	switch k {
	case NoProviderFound:
		return "no provider found"
	case NoAccountsFound:
		return "no accounts found"
	case UserRejected:
		return "user rejected"
	case Timeout:
		return "timeout"
	case HostBridgeError:
		return "host bridge error"
	default:
		return "unknown"
	}
}

// Error is a connection failure. Match kinds with errors.Is against the
// Err* sentinels.
type Error struct {
	Kind Kind
	Err  error
}

// Sentinels for errors.Is.
var (
	ErrNoProviderFound = &Error{Kind: NoProviderFound}
	ErrNoAccountsFound = &Error{Kind: NoAccountsFound}
	ErrUserRejected    = &Error{Kind: UserRejected}
	ErrTimeout         = &Error{Kind: Timeout}
	ErrHostBridge      = &Error{Kind: HostBridgeError}
)

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case NoProviderFound:
		msg = "No wallet found. Please install Coinbase Wallet or configure a wallet provider"
	case NoAccountsFound:
		msg = "No accounts found"
	case UserRejected:
		msg = "Connection request rejected"
	case Timeout:
		msg = "Wallet connection timeout"
	default:
		msg = "Host wallet error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NetworkMismatch is a warning: the wallet stays on an unsupported chain
// but the connection remains usable.
type NetworkMismatch struct {
	ChainID int64
	Err     error
}

func (e *NetworkMismatch) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Failed to switch network (chain %d): %v", e.ChainID, e.Err)
	}
	return fmt.Sprintf("Wrong network (chain %d). Please switch to Base", e.ChainID)
}

func (e *NetworkMismatch) Unwrap() error { return e.Err }

// fromBridge maps a bridge failure onto a connection error.
func fromBridge(err error) error {
	switch {
	case errors.Is(err, bridge.ErrTimeout):
		return &Error{Kind: Timeout, Err: err}
	default:
		return &Error{Kind: HostBridgeError, Err: err}
	}
}
