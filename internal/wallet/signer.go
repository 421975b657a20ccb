package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrChainNotAllowed is returned when signing for a chain outside the
// signer's scope.
var ErrChainNotAllowed = errors.New("chain not allowed for this wallet")

// ErrSignerClosed is returned by a signer after Close.
var ErrSignerClosed = errors.New("signer closed")

// Signer signs EVM transactions for a signing wallet.
type Signer struct {
	wallet  *Wallet
	keys    KeyStore
	session *Session
	chains  map[int64]bool
	closed  atomic.Bool
}

// NewSigner creates a signer for w. Keys are looked up in session first,
// then in keys. An empty chainIDs list allows any chain.
func NewSigner(w *Wallet, keys KeyStore, session *Session, chainIDs ...int64) *Signer {
	s := &Signer{wallet: w, keys: keys, session: session}
	if len(chainIDs) > 0 {
		s.chains = make(map[int64]bool, len(chainIDs))
		for _, id := range chainIDs {
			s.chains[id] = true
		}
	}
	return s
}

// Address returns the wallet's address.
func (s *Signer) Address() common.Address {
	return common.HexToAddress(s.wallet.Address)
}

// Wallet returns the wallet being signed for.
func (s *Signer) Wallet() *Wallet { return s.wallet }

// Allows reports whether chainID is within the signer's scope.
func (s *Signer) Allows(chainID int64) bool {
	return s.chains == nil || s.chains[chainID]
}

// Ready reports whether the key can be resolved without error.
func (s *Signer) Ready() error {
	if s.closed.Load() {
		return ErrSignerClosed
	}
	_, err := s.privateKey()
	return err
}

// Close ends the signer's connection. The wallet's unlock cache is left to
// `wallet lock`.
func (s *Signer) Close() error {
	s.closed.Store(true)
	return nil
}

// SignTx signs tx and returns the raw signed bytes.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrSignerClosed
	}
	if !s.wallet.CanSign() {
		return nil, fmt.Errorf("%w: %s", ErrWatchOnly, s.wallet.Name)
	}
	if !s.Allows(chainID.Int64()) {
		return nil, fmt.Errorf("%w: %d", ErrChainNotAllowed, chainID.Int64())
	}

	privKey, err := s.privateKey()
	if err != nil {
		return nil, err
	}

	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), privKey)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}
	return raw, nil
}

func (s *Signer) privateKey() (*ecdsa.PrivateKey, error) {
	hexKey, ok := s.session.Get(s.wallet.KeyRef)
	if !ok {
		var err error
		hexKey, err = s.keys.Retrieve(s.wallet.KeyRef)
		if err != nil {
			return nil, fmt.Errorf("retrieving key: %w", err)
		}
	}
	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if crypto.PubkeyToAddress(privKey.PublicKey) != s.Address() {
		return nil, fmt.Errorf("stored key does not match %s", s.wallet.Address)
	}
	return privKey, nil
}
