// Package sender funds the run's wallets from a single key.
package sender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sahara/internal/config"
	"sahara/internal/evm"
	"sahara/internal/logger"
	"sahara/internal/storage"
	"sahara/internal/types"
	"sahara/internal/utils"

	"github.com/ethereum/go-ethereum/common"
)

// ErrFundsExhausted stops the run when the funding wallet cannot cover the next transfer.
var ErrFundsExhausted = errors.New("funding wallet balance is too low")

// SelfSender sends a random amount of the native coin from one funding key to each recipient.
type SelfSender struct {
	cfg        *config.Config
	client     evm.EVMClient
	signer     *evm.Signer
	transactor *evm.Transactor
	store      storage.TransactionLogger
	log        logger.Logger
}

// New creates a SelfSender that pays from signer on client.
func New(cfg *config.Config, client evm.EVMClient, signer *evm.Signer, confirm evm.ConfirmPolicy,
	store storage.TransactionLogger, log logger.Logger) *SelfSender {
	return &SelfSender{
		cfg:        cfg,
		client:     client,
		signer:     signer,
		transactor: evm.NewTransactor(client, signer, confirm, log),
		store:      store,
		log:        log,
	}
}

// Run funds every recipient in order and returns the number of confirmed transfers.
// It stops at the first recipient the funding wallet cannot pay.
func (s *SelfSender) Run(ctx context.Context, recipients []common.Address) (int, error) {
	from := s.signer.Address()
	amount := s.cfg.SelfSender.Amount
	network := s.cfg.SelfSender.Network
	s.log.Info("Запуск рассылки с кошелька", "from", from.Hex(), "recipients", len(recipients), "net", network)

	sent := 0
	for i, to := range recipients {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		value, err := utils.FloatToWei(utils.RandomFloatInRange(amount.Min, amount.Max, 4))
		if err != nil {
			return sent, err
		}
		balance, err := s.client.GetBalance(ctx, from)
		if err != nil {
			return sent, fmt.Errorf("баланс отправителя: %w", err)
		}
		if balance.Cmp(value) < 0 {
			s.log.Error("Недостаточно средств для отправки", "need", utils.FromWei(value), "have", utils.FromWei(balance))
			return sent, fmt.Errorf("%w: need %s, have %s", ErrFundsExhausted, utils.FromWei(value), utils.FromWei(balance))
		}

		s.log.Info("Отправка средств", "to", to.Hex(), "amount", utils.FromWei(value),
			"num", fmt.Sprintf("%d/%d", i+1, len(recipients)))
		record := storage.TransactionRecord{
			WalletAddress: to.Hex(),
			TaskName:      types.TaskNameSelfSender,
			Network:       network,
		}
		receipt, sendErr := s.transactor.Send(ctx, evm.TxRequest{To: to, Value: value})
		if sendErr != nil {
			record.Status = types.TxStatusFailed
			record.Error = sendErr.Error()
			s.logRecord(record)
			return sent, fmt.Errorf("отправка на %s: %w", to.Hex(), sendErr)
		}
		record.Status = types.TxStatusSuccess
		record.TxHash = receipt.TxHash.Hex()
		s.logRecord(record)
		sent++
		s.log.Success("Средства отправлены", "to", to.Hex(), "tx", s.cfg.Explorer(network)+receipt.TxHash.Hex())

		if i < len(recipients)-1 {
			if err := utils.SleepRange(ctx, s.cfg.Delay.BetweenActions); err != nil {
				return sent, err
			}
		}
	}
	return sent, nil
}

func (s *SelfSender) logRecord(record storage.TransactionRecord) {
	record.Timestamp = time.Now().Truncate(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.LogTransaction(ctx, record); err != nil {
		s.log.Error("Не удалось записать лог транзакции в БД", "to", record.WalletAddress, "err", err)
	}
}
