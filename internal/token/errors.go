package token

import (
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
)

// Kind classifies a contract failure.
type Kind int

const (
	InvalidAddress Kind = iota + 1
	NotAnERC20
	RPCError
	BurnUnsupported
)

// Error is a contract failure. Match kinds with errors.Is against the
// Err* sentinels.
type Error struct {
	Kind Kind
	Err  error
}

// Sentinels for errors.Is.
var (
	ErrInvalidAddress  = &Error{Kind: InvalidAddress}
	ErrNotAnERC20      = &Error{Kind: NotAnERC20}
	ErrRPC             = &Error{Kind: RPCError}
	ErrBurnUnsupported = &Error{Kind: BurnUnsupported}
)

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case InvalidAddress:
		msg = "Please enter a valid contract address"
	case NotAnERC20:
		msg = "Failed to load token information. Make sure this is a valid ERC20 contract."
	case RPCError:
		msg = "RPC request failed"
	default:
		msg = "Token does not support burn or burnFrom (tried " + BurnMethods() + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%v)", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// classifyRead maps a failed contract read: transport failures stay RPC
// errors, everything else means the address is not a usable ERC20.
func classifyRead(err error) error {
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, chain.ErrTransport) {
		return &Error{Kind: RPCError, Err: err}
	}
	return &Error{Kind: NotAnERC20, Err: err}
}
