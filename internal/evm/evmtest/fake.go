// Package evmtest provides an in-memory evm.EVMClient for tests of code that sends transactions.
package evmtest

import (
	"context"
	"math/big"
	"sync"

	"sahara/internal/evm"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

var _ evm.EVMClient = (*FakeClient)(nil)

// FakeClient confirms every sent transaction with a successful receipt unless SendErr is set.
// Balances are looked up by address; unknown addresses get DefaultBalance.
type FakeClient struct {
	mu             sync.Mutex
	ChainID        *big.Int
	Balances       map[common.Address]*big.Int
	DefaultBalance *big.Int
	GasPrice       *big.Int
	SendErr        error
	Sent           []*ethtypes.Transaction
	Closed         bool
}

// NewFakeClient returns a client on chain 313313 where every address holds balance.
func NewFakeClient(balance *big.Int) *FakeClient {
	return &FakeClient{
		ChainID:        big.NewInt(313313),
		Balances:       map[common.Address]*big.Int{},
		DefaultBalance: balance,
		GasPrice:       big.NewInt(1_000_000_000),
	}
}

// SetBalance overrides the balance of one address.
func (f *FakeClient) SetBalance(addr common.Address, v *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[addr] = v
}

// SentTxs returns a copy of the transactions sent so far.
func (f *FakeClient) SentTxs() []*ethtypes.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ethtypes.Transaction(nil), f.Sent...)
}

func (f *FakeClient) Close() {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
}

func (f *FakeClient) GetChainID() *big.Int { return f.ChainID }

func (f *FakeClient) GetBalance(_ context.Context, addr common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.Balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	if f.DefaultBalance == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(f.DefaultBalance), nil
}

func (f *FakeClient) GetNonce(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.Sent)), nil
}

func (f *FakeClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.GasPrice), nil
}

func (f *FakeClient) EstimateGasLimit(context.Context, ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *FakeClient) SendRawTransaction(_ context.Context, tx *ethtypes.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.Sent = append(f.Sent, tx)
	return nil
}

func (f *FakeClient) TransactionReceipt(_ context.Context, h common.Hash) (*ethtypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.Sent {
		if tx.Hash() == h {
			return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, TxHash: h}, nil
		}
	}
	return nil, ethereum.NotFound
}

func (f *FakeClient) WaitForReceipt(ctx context.Context, h common.Hash) (*ethtypes.Receipt, error) {
	return f.TransactionReceipt(ctx, h)
}
