// Package providertest runs an in-process wallet provider for tests.
package providertest

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/provider"
)

// CodedError is a JSON-RPC error with an explicit code.
type CodedError struct {
	Code int
	Msg  string
}

func (e *CodedError) Error() string  { return e.Msg }
func (e *CodedError) ErrorCode() int { return e.Code }

// SendArgs is a recorded eth_sendTransaction request.
type SendArgs struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
	Gas  hexutil.Uint64 `json:"gas"`
}

// Wallet is a scriptable fake wallet. Exported fields may be set before
// use; access them through Lock/Unlock while the server is running.
type Wallet struct {
	sync.Mutex

	Accounts []common.Address
	Chain    int64
	// Known lists chains the wallet can switch to without adding them.
	Known map[int64]bool

	RejectAccounts bool
	RejectSwitch   bool
	// EstimateErr, when set, fails eth_estimateGas for calldata starting
	// with the given 4-byte selector.
	EstimateErr map[[4]byte]error
	SendErr     error
	Gas         uint64

	Calls []string
	Sent  []SendArgs
	Added []chain.AddChainParams
}

// NewWallet returns a wallet on chainID exposing accounts.
func NewWallet(chainID int64, accounts ...common.Address) *Wallet {
	return &Wallet{
		Accounts:    accounts,
		Chain:       chainID,
		Known:       map[int64]bool{chainID: true},
		EstimateErr: map[[4]byte]error{},
		Gas:         50_000,
	}
}

// Server returns a JSON-RPC server for w. It also serves HTTP.
func (w *Wallet) Server() *rpc.Server {
	srv := rpc.NewServer()
	if err := srv.RegisterName("eth", &ethAPI{w}); err != nil {
		panic(err)
	}
	if err := srv.RegisterName("wallet", &walletAPI{w}); err != nil {
		panic(err)
	}
	return srv
}

// Provider returns an in-process client for w.
func (w *Wallet) Provider(name string) *provider.Provider {
	return provider.New(name, "", rpc.DialInProc(w.Server()))
}

// CallCount returns how often method was invoked.
func (w *Wallet) CallCount(method string) int {
	w.Lock()
	defer w.Unlock()
	n := 0
	for _, c := range w.Calls {
		if c == method {
			n++
		}
	}
	return n
}

func (w *Wallet) record(method string) {
	w.Calls = append(w.Calls, method)
}

type ethAPI struct{ w *Wallet }

func (a *ethAPI) RequestAccounts() ([]common.Address, error) {
	a.w.Lock()
	defer a.w.Unlock()
	a.w.record("eth_requestAccounts")
	if a.w.RejectAccounts {
		return nil, &CodedError{Code: provider.CodeUserRejected, Msg: "User rejected the request."}
	}
	return append([]common.Address{}, a.w.Accounts...), nil
}

func (a *ethAPI) Accounts() []common.Address {
	a.w.Lock()
	defer a.w.Unlock()
	a.w.record("eth_accounts")
	return append([]common.Address{}, a.w.Accounts...)
}

func (a *ethAPI) ChainId() hexutil.Uint64 { //nolint:revive
	a.w.Lock()
	defer a.w.Unlock()
	a.w.record("eth_chainId")
	return hexutil.Uint64(a.w.Chain)
}

func (a *ethAPI) EstimateGas(args SendArgs) (hexutil.Uint64, error) {
	a.w.Lock()
	defer a.w.Unlock()
	a.w.record("eth_estimateGas")
	if len(args.Data) >= 4 {
		var sel [4]byte
		copy(sel[:], args.Data[:4])
		if err := a.w.EstimateErr[sel]; err != nil {
			return 0, err
		}
	}
	return hexutil.Uint64(a.w.Gas), nil
}

func (a *ethAPI) SendTransaction(args SendArgs) (common.Hash, error) {
	a.w.Lock()
	defer a.w.Unlock()
	a.w.record("eth_sendTransaction")
	if a.w.SendErr != nil {
		return common.Hash{}, a.w.SendErr
	}
	a.w.Sent = append(a.w.Sent, args)
	return common.BigToHash(big.NewInt(int64(len(a.w.Sent)))), nil
}

type walletAPI struct{ w *Wallet }

type switchArgs struct {
	ChainID hexutil.Uint64 `json:"chainId"`
}

func (a *walletAPI) SwitchEthereumChain(args switchArgs) error {
	a.w.Lock()
	defer a.w.Unlock()
	a.w.record("wallet_switchEthereumChain")
	if a.w.RejectSwitch {
		return &CodedError{Code: provider.CodeUserRejected, Msg: "User rejected the request."}
	}
	id := int64(args.ChainID)
	if !a.w.Known[id] {
		return &CodedError{Code: provider.CodeUnrecognizedChain, Msg: fmt.Sprintf("Unrecognized chain ID %d", id)}
	}
	a.w.Chain = id
	return nil
}

func (a *walletAPI) AddEthereumChain(p chain.AddChainParams) error {
	a.w.Lock()
	defer a.w.Unlock()
	a.w.record("wallet_addEthereumChain")
	var id hexutil.Uint64
	if err := id.UnmarshalText([]byte(p.ChainID)); err != nil {
		return errors.New("invalid chainId")
	}
	a.w.Known[int64(id)] = true
	a.w.Added = append(a.w.Added, p)
	return nil
}
