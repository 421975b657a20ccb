package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
)

// Call is a state-changing contract invocation ready to be estimated and
// sent.
type Call struct {
	To     common.Address
	Data   []byte
	Method string
}

// Request converts c into a transaction request with the given gas limit.
func (c Call) Request(gas uint64) chain.TxRequest {
	return chain.TxRequest{To: c.To, Data: c.Data, Gas: gas}
}

// BurnCall encodes burn(amount).
func BurnCall(tokenAddr common.Address, amount *big.Int) (Call, error) {
	return pack(tokenAddr, "burn", amount)
}

// BurnFromCall encodes burnFrom(account, amount).
func BurnFromCall(tokenAddr, account common.Address, amount *big.Int) (Call, error) {
	return pack(tokenAddr, "burnFrom", account, amount)
}

// RevokeCall encodes revokeOwnership().
func RevokeCall(tokenAddr common.Address) (Call, error) {
	return pack(tokenAddr, "revokeOwnership")
}

func pack(to common.Address, method string, args ...interface{}) (Call, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return Call{}, err
	}
	return Call{To: to, Data: data, Method: method}, nil
}
