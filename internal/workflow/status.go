package workflow

import "fmt"

// Stage is a step of a transaction run.
type Stage int

const (
	Idle Stage = iota
	Validating
	Estimating
	AwaitingSignature
	Submitted
	Confirming
	Succeeded
	Failed
)

var stageNames = [...]string{
	Idle:              "idle",
	Validating:        "validating",
	Estimating:        "estimating",
	AwaitingSignature: "awaiting_signature",
	Submitted:         "submitted",
	Confirming:        "confirming",
	Succeeded:         "succeeded",
	Failed:            "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Terminal reports whether s ends a run.
func (s Stage) Terminal() bool { return s == Succeeded || s == Failed }

// StatusKind is the user-visible state of the last transaction.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// MarshalText renders the kind by name in JSON.
func (k StatusKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a kind name.
func (k *StatusKind) UnmarshalText(b []byte) error {
	for _, c := range []StatusKind{StatusIdle, StatusPending, StatusSuccess, StatusError} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown status kind %q", b)
}

// Status is what the user sees about the current or last transaction.
type Status struct {
	Kind        StatusKind `json:"kind"`
	Message     string     `json:"message,omitempty"`
	TxHash      string     `json:"tx_hash,omitempty"`
	ExplorerURL string     `json:"explorer_url,omitempty"`
}

func IdleStatus() Status { return Status{Kind: StatusIdle} }

func Pending(msg string) Status { return Status{Kind: StatusPending, Message: msg} }

func Success(msg string) Status { return Status{Kind: StatusSuccess, Message: msg} }

func Failure(msg string) Status { return Status{Kind: StatusError, Message: msg} }

// Status messages shown while a run is in flight.
const (
	msgValidating = "Validating..."
	msgPreparing  = "Preparing transaction..."
	msgSign       = "Please confirm the transaction in your wallet..."
	msgSent       = "Transaction sent! Waiting for confirmation..."
)
