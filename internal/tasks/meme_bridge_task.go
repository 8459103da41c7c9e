package tasks

import (
	"context"
	"fmt"

	"sahara/internal/evm"
	"sahara/internal/retry"
	"sahara/internal/utils"

	"github.com/ethereum/go-ethereum/common"
)

var (
	memeBridgeContract = common.HexToAddress("0x77A6ab7DC9096e7a311Eb9Bb4791494460F53c82")
	memeBridgeCalldata = common.FromHex("0x11cd")
)

// MemeBridgeTask buys testnet SAHARA through the meme bridge when the wallet runs low.
// The task network is where the balance is checked; the deposit is paid on source_network.
// Params: source_network (required), min_balance (default 1), amount_min, amount_max.
type MemeBridgeTask struct {
	deps Deps
}

// NewMemeBridgeTask is the constructor for MemeBridgeTask.
func NewMemeBridgeTask(deps Deps) TaskRunner {
	return &MemeBridgeTask{deps: deps}
}

// Run executes the bridge deposit.
func (t *MemeBridgeTask) Run(ctx context.Context, signer *evm.Signer, client evm.EVMClient, params map[string]interface{}) error {
	if client == nil {
		return ErrClientRequired
	}
	source := stringParam(params, "source_network", "")
	if source == "" {
		return fmt.Errorf("%w: source_network is required", ErrInvalidParam)
	}
	minBalance, err := floatParam(params, "min_balance", 1)
	if err != nil {
		return err
	}
	amountMin, err := floatParam(params, "amount_min", 0)
	if err != nil {
		return err
	}
	amountMax, err := floatParam(params, "amount_max", amountMin)
	if err != nil {
		return err
	}
	if amountMin <= 0 || amountMax < amountMin {
		return fmt.Errorf("%w: amount range %v..%v", ErrInvalidParam, amountMin, amountMax)
	}

	addr := signer.Address()
	balance, err := client.GetBalance(ctx, addr)
	if err != nil {
		return fmt.Errorf("ошибка получения баланса: %w", err)
	}
	threshold, err := utils.FloatToWei(minBalance)
	if err != nil {
		return err
	}
	if balance.Cmp(threshold) >= 0 {
		t.deps.Log.Info("Баланса достаточно, покупка не нужна", "addr", addr.Hex(), "balance", utils.FromWei(balance))
		return nil
	}

	if t.deps.Clients == nil {
		return fmt.Errorf("нет фабрики клиентов для сети %s", source)
	}
	srcClient, err := t.deps.Clients(ctx, source)
	if err != nil {
		return fmt.Errorf("клиент сети %s: %w", source, err)
	}
	defer srcClient.Close()

	value, err := utils.FloatToWei(utils.RandomFloatInRange(amountMin, amountMax, 6))
	if err != nil {
		return err
	}
	srcBalance, err := srcClient.GetBalance(ctx, addr)
	if err != nil {
		return fmt.Errorf("ошибка получения баланса в сети %s: %w", source, err)
	}
	if srcBalance.Cmp(value) < 0 {
		return fmt.Errorf("%w: в сети %s нужно %s, есть %s", retry.ErrInsufficientBalance,
			source, utils.FromWei(value), utils.FromWei(srcBalance))
	}

	t.deps.Log.Info("Покупка через meme bridge", "addr", addr.Hex(), "net", source, "amount", utils.FromWei(value))
	receipt, err := evm.NewTransactor(srcClient, signer, t.deps.Confirm, t.deps.Log).Send(ctx, evm.TxRequest{
		To:    memeBridgeContract,
		Value: value,
		Data:  memeBridgeCalldata,
	})
	if err != nil {
		return fmt.Errorf("meme bridge: %w", err)
	}
	t.deps.Log.Success("Покупка через meme bridge подтверждена", "addr", addr.Hex(),
		"tx", t.deps.txLinkOn(source, receipt.TxHash.Hex()))
	return nil
}
