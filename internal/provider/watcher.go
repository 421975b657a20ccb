package provider

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind identifies a provider notification.
type EventKind int

const (
	AccountsChanged EventKind = iota + 1
	ChainChanged
)

// Event is a change observed on the provider.
type Event struct {
	Kind     EventKind
	Accounts []common.Address
	ChainID  int64
}

// Watcher polls a provider for account and chain changes.
type Watcher struct {
	p        *Provider
	interval time.Duration
}

// NewWatcher creates a watcher polling every interval.
func NewWatcher(p *Provider, interval time.Duration) *Watcher {
	return &Watcher{p: p, interval: interval}
}

// Run polls until ctx is done. The first poll establishes the baseline and
// emits nothing. Failed polls are skipped. The channel is closed on return.
func (w *Watcher) Run(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		var (
			accounts []common.Address
			chainID  int64
			primed   bool
		)
		for {
			a, aerr := w.p.Accounts(ctx)
			c, cerr := w.p.ChainID(ctx)
			if aerr == nil && cerr == nil {
				if primed {
					if c != chainID {
						if !emit(ctx, out, Event{Kind: ChainChanged, ChainID: c}) {
							return
						}
					} else if !sameAccounts(a, accounts) {
						if !emit(ctx, out, Event{Kind: AccountsChanged, Accounts: a, ChainID: c}) {
							return
						}
					}
				}
				accounts, chainID, primed = a, c, true
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

func emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func sameAccounts(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
