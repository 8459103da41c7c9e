package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"sahara/internal/config"
	"sahara/internal/logger"
	"sahara/internal/retry"
	"sahara/internal/types"
	"sahara/internal/utils"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrTxReverted indicates a mined transaction with status 0.
	ErrTxReverted = errors.New("transaction reverted")
	// ErrTxNotConfirmed indicates that attempts ran out before a successful receipt.
	ErrTxNotConfirmed = errors.New("transaction not confirmed")
)

// TxRequest describes a legacy transaction to build, sign and send.
type TxRequest struct {
	To    common.Address
	Value *big.Int
	Data  []byte
	// GasPricePercent scales the suggested gas price; 0 means 110.
	GasPricePercent int64
}

// ConfirmPolicy controls the send-and-confirm loop.
type ConfirmPolicy struct {
	Attempts   int
	PollDelay  config.DelayRange
	RetryDelay config.DelayRange
}

// DefaultConfirmPolicy: ten attempts, 7-10s before each receipt check, 15-40s after a failure.
var DefaultConfirmPolicy = ConfirmPolicy{
	Attempts:   10,
	PollDelay:  config.DelayRange{Min: 7, Max: 10, Unit: types.TimeUnitSeconds},
	RetryDelay: config.DelayRange{Min: 15, Max: 40, Unit: types.TimeUnitSeconds},
}

// Transactor sends transactions for one signer and waits for a successful receipt.
type Transactor struct {
	client EVMClient
	signer *Signer
	policy ConfirmPolicy
	log    logger.Logger
}

// NewTransactor creates a Transactor.
func NewTransactor(client EVMClient, signer *Signer, policy ConfirmPolicy, log logger.Logger) *Transactor {
	return &Transactor{client: client, signer: signer, policy: policy, log: log}
}

// Send builds, signs and sends req, then polls for its receipt.
// A pending or unknown tx is polled again; a reverted tx is rebuilt and resent.
// A wallet that cannot pay fails fast with retry.ErrInsufficientBalance.
func (t *Transactor) Send(ctx context.Context, req TxRequest) (*ethtypes.Receipt, error) {
	attempts := t.policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	addr := t.signer.Address().Hex()

	var sent *ethtypes.Transaction
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if sent == nil {
			tx, err := t.build(ctx, req)
			if err == nil {
				err = t.client.SendRawTransaction(ctx, tx)
			}
			if err != nil {
				if stop := t.handleErr(ctx, err, attempt, addr); stop != nil {
					return nil, stop
				}
				lastErr = err
				continue
			}
			sent = tx
		}

		if err := utils.SleepRange(ctx, t.policy.PollDelay); err != nil {
			return nil, err
		}

		receipt, err := t.client.TransactionReceipt(ctx, sent.Hash())
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				t.log.Info("Транзакция пока не найдена, ждем...", "tx_hash", sent.Hash().Hex(), "addr", addr)
			}
			if stop := t.handleErr(ctx, err, attempt, addr); stop != nil {
				return nil, stop
			}
			lastErr = err
			continue
		}
		if receipt.Status == ethtypes.ReceiptStatusSuccessful {
			return receipt, nil
		}

		t.log.Error("Транзакция завершилась с ошибкой, отправляем заново", "tx_hash", sent.Hash().Hex(),
			"status", receipt.Status, "attempt", attempt, "addr", addr)
		lastErr = fmt.Errorf("%w: %s", ErrTxReverted, sent.Hash().Hex())
		sent = nil
		if err := utils.SleepRange(ctx, t.policy.RetryDelay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrTxNotConfirmed, attempts, lastErr)
}

// handleErr returns a non-nil error when the loop must stop, otherwise sleeps before the next attempt.
func (t *Transactor) handleErr(ctx context.Context, err error, attempt int, addr string) error {
	switch retry.Classify(err) {
	case retry.Fatal, retry.GiveUp:
		return err
	}
	t.log.Warn("Ошибка транзакции, повтор", "attempt", attempt, "err", err, "addr", addr)
	if sleepErr := utils.SleepRange(ctx, t.policy.RetryDelay); sleepErr != nil {
		return sleepErr
	}
	return nil
}

func (t *Transactor) build(ctx context.Context, req TxRequest) (*ethtypes.Transaction, error) {
	from := t.signer.Address()
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	gasPrice, err := t.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	percent := req.GasPricePercent
	if percent <= 0 {
		percent = 110
	}
	gasPrice = utils.MulPercent(gasPrice, percent)

	nonce, err := t.client.GetNonce(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	to := req.To
	gas, err := t.client.EstimateGasLimit(ctx, ethereum.CallMsg{
		From:     from,
		To:       &to,
		GasPrice: gasPrice,
		Value:    value,
		Data:     req.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	balance, err := t.client.GetBalance(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	cost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gas))
	cost.Add(cost, value)
	if balance.Cmp(cost) < 0 {
		return nil, fmt.Errorf("%w: need %s, have %s", retry.ErrInsufficientBalance,
			utils.FromWei(cost), utils.FromWei(balance))
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     req.Data,
	})
	return t.signer.SignTx(tx, t.client.GetChainID())
}
