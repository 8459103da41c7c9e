package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"sahara/internal/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	// ErrNoRpcUrlsProvided indicates that no RPC URLs were provided for client creation.
	ErrNoRpcUrlsProvided = errors.New("no RPC URLs provided")
	// ErrEvmClientCreationFailed indicates that the client failed to connect to any of the provided RPC URLs.
	ErrEvmClientCreationFailed = errors.New("failed to connect to any provided EVM node")
)

// receiptPollInterval is how often WaitForReceipt asks the node for a receipt.
var receiptPollInterval = 5 * time.Second

// EVMClient defines the interface for interacting with an EVM compatible blockchain.
type EVMClient interface {
	Close()
	GetChainID() *big.Int
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	GetNonce(ctx context.Context, address common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGasLimit(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendRawTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Backend is the subset of ethclient.Client used by Client.
// simulated.Backend clients satisfy it as well, which keeps tests off the network.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Client wraps a go-ethereum backend and provides helper methods.
type Client struct {
	backend Backend
	closer  func()
	chainID *big.Int
	log     logger.Logger
}

// Ensure Client implements EVMClient interface at compile time.
var _ EVMClient = (*Client)(nil)

// NewClient creates a new EVM client, trying multiple RPC URLs if provided.
func NewClient(ctx context.Context, log logger.Logger, rpcUrls []string) (*Client, error) {
	if len(rpcUrls) == 0 {
		return nil, ErrNoRpcUrlsProvided
	}

	log.Debug("Подключение к EVM узлу...", "rpc_count", len(rpcUrls))
	var lastErr error

	for i, url := range rpcUrls {
		log.Debug("Попытка подключения", "rpc_url", url, "attempt", i+1)

		dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := ethclient.DialContext(dialCtx, url)
		dialCancel()
		if err == nil {
			chainCtx, chainCancel := context.WithTimeout(ctx, 5*time.Second)
			chainID, err := client.ChainID(chainCtx)
			chainCancel()
			if err == nil {
				log.Debug("Подключено к EVM узлу", "url", url, "chain_id", chainID.String())
				return &Client{backend: client, closer: client.Close, chainID: chainID, log: log}, nil
			}
			log.Warn("Подключено, но не удалось получить ChainID", "url", url, "error", err)
			client.Close()
			lastErr = err
		} else {
			log.Warn("Не удалось подключиться к EVM узлу", "url", url, "error", err)
			lastErr = err
		}
		if ctx.Err() != nil {
			log.Warn("Подключение к EVM узлу прервано родительским контекстом")
			return nil, ctx.Err()
		}
	}

	log.Error("Не удалось подключиться ни к одному из указанных EVM узлов", "last_error", lastErr)
	return nil, fmt.Errorf("%w: %w", ErrEvmClientCreationFailed, lastErr)
}

// NewClientFromBackend wraps an already connected backend.
func NewClientFromBackend(ctx context.Context, log logger.Logger, backend Backend) (*Client, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return &Client{backend: backend, chainID: chainID, log: log}, nil
}

// Close terminates the underlying RPC connection
func (c *Client) Close() {
	if c.closer != nil {
		c.log.Debug("Закрытие соединения с EVM клиентом")
		c.closer()
	}
}

// GetChainID returns the chain ID associated with the client connection
func (c *Client) GetChainID() *big.Int {
	return c.chainID
}

// GetBalance retrieves the native token balance for a given address
func (c *Client) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return c.backend.BalanceAt(ctx, address, nil)
}

// GetNonce retrieves the next nonce for an account
func (c *Client) GetNonce(ctx context.Context, address common.Address) (uint64, error) {
	return c.backend.PendingNonceAt(ctx, address)
}

// SuggestGasPrice suggests a gas price for legacy transactions
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.backend.SuggestGasPrice(ctx)
}

// EstimateGasLimit estimates the gas needed for a transaction
func (c *Client) EstimateGasLimit(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.backend.EstimateGas(ctx, msg)
}

// SendRawTransaction sends a signed transaction to the network
func (c *Client) SendRawTransaction(ctx context.Context, tx *types.Transaction) error {
	c.log.Debug("Отправка подписанной транзакции", "tx_hash", tx.Hash().Hex())
	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("sending transaction failed: %w", err)
	}
	c.log.Info("Транзакция отправлена", "tx_hash", tx.Hash().Hex())
	return nil
}

// TransactionReceipt returns the receipt or ethereum.NotFound while the tx is pending.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.backend.TransactionReceipt(ctx, txHash)
}

// WaitForReceipt waits for a transaction receipt, polling the network
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.log.Debug("Ожидание квитанции транзакции", "tx_hash", txHash.Hex())
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			c.log.Debug("Квитанция транзакции получена", "tx_hash", txHash.Hex(), "status", receipt.Status)
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("error fetching receipt: %w", err)
		}

		select {
		case <-time.After(receiptPollInterval):
		case <-ctx.Done():
			c.log.Warn("Контекст отменен во время ожидания квитанции", "tx_hash", txHash.Hex())
			return nil, ctx.Err()
		}
	}
}
