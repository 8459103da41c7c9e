package tasks

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sahara/internal/config"
	"sahara/internal/evm"
	"sahara/internal/evm/evmtest"
	"sahara/internal/logger"
	"sahara/internal/retry"
	"sahara/internal/sahara"
	"sahara/internal/storage/memory"
	"sahara/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var oneEther = big.NewInt(1_000_000_000_000_000_000)

// legends serves the Sahara endpoints the daily task uses.
// claimStatus holds per-task queues of status codes; an empty queue means 200.
type legends struct {
	mu          sync.Mutex
	claimStatus map[string][]int
	claimed     map[string]bool
	claimCalls  map[string]int
	flushCalls  map[string]int
}

func newLegends() *legends {
	return &legends{
		claimStatus: map[string][]int{},
		claimed:     map[string]bool{},
		claimCalls:  map[string]int{},
		flushCalls:  map[string]int{},
	}
}

func (l *legends) serve(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/challenge", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"challenge":"abc"}`))
	})
	mux.HandleFunc("/login/wallet", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accessToken":"jwt"}`))
	})
	taskID := func(r *http.Request) string {
		var body struct {
			TaskID string `json:"taskID"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		return body.TaskID
	}
	mux.HandleFunc("/task/flush", func(w http.ResponseWriter, r *http.Request) {
		id := taskID(r)
		l.mu.Lock()
		l.flushCalls[id]++
		l.mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/task/claim", func(w http.ResponseWriter, r *http.Request) {
		id := taskID(r)
		l.mu.Lock()
		defer l.mu.Unlock()
		l.claimCalls[id]++
		if q := l.claimStatus[id]; len(q) > 0 {
			l.claimStatus[id] = q[1:]
			if q[0] != http.StatusOK {
				w.WriteHeader(q[0])
				_, _ = w.Write([]byte(`{"msg":"internal error"}`))
				return
			}
		}
		if l.claimed[id] {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"msg":"reward has been claimed"}`))
			return
		}
		l.claimed[id] = true
		_, _ = w.Write([]byte(`{}`))
	})
	return httptest.NewServer(mux)
}

func (l *legends) claims(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.claimCalls[id]
}

type dailyFixture struct {
	task    *DailyTask
	signer  *evm.Signer
	client  *evmtest.FakeClient
	store   *memory.Store
	legends *legends
}

func newDailyFixture(t *testing.T) *dailyFixture {
	l := newLegends()
	srv := l.serve(t)
	t.Cleanup(srv.Close)

	cfg := &config.Config{Sahara: config.SaharaConfig{
		DailyTaskIDs:  []string{"1002", "1004"},
		TxTaskID:      "1004",
		ClaimAttempts: 3,
	}}
	store := memory.NewStore()
	deps := Deps{
		Cfg:     cfg,
		Log:     logger.Nop(),
		Store:   store,
		Sahara:  sahara.NewClient(sahara.Options{BaseURL: srv.URL}, logger.Nop()),
		Confirm: evm.ConfirmPolicy{Attempts: 3},
		Now:     func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) },
		Network: "sahara",
	}
	task := NewDailyTask(deps).(*DailyTask)
	task.retryDelay = config.DelayRange{}
	task.settleDelay = config.DelayRange{}

	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &dailyFixture{
		task:    task,
		signer:  evm.NewSigner(pk),
		client:  evmtest.NewFakeClient(oneEther),
		store:   store,
		legends: l,
	}
}

func TestDailyClaimsSendsSelfTxAndClaimsTxTask(t *testing.T) {
	f := newDailyFixture(t)

	err := f.task.Run(context.Background(), f.signer, f.client, nil)
	require.NoError(t, err)

	sent := f.client.SentTxs()
	require.Len(t, sent, 1)
	assert.Equal(t, f.signer.Address(), *sent[0].To())
	assert.True(t, sent[0].Value().Cmp(big.NewInt(0).Div(oneEther, big.NewInt(10))) >= 0)
	assert.True(t, sent[0].Value().Cmp(big.NewInt(0).Div(big.NewInt(0).Mul(oneEther, big.NewInt(9)), big.NewInt(10))) <= 0)

	assert.Equal(t, 1, f.legends.claims("1002"))
	// claimed once in the daily loop, then answered "has been claimed" after the tx
	assert.Equal(t, 2, f.legends.claims("1004"))

	done, err := f.store.IsTaskCompleted(context.Background(), f.signer.Address().Hex(), "sahara_daily:2025-05-01:tx")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestDailyRetriesClaimUntilAccepted(t *testing.T) {
	f := newDailyFixture(t)
	f.legends.claimStatus["1002"] = []int{http.StatusInternalServerError, http.StatusBadGateway}

	require.NoError(t, f.task.Run(context.Background(), f.signer, f.client, nil))
	assert.Equal(t, 3, f.legends.claims("1002"))
}

func TestDailyFailsAfterClaimAttempts(t *testing.T) {
	f := newDailyFixture(t)
	f.legends.claimStatus["1002"] = []int{500, 500, 500, 500}

	err := f.task.Run(context.Background(), f.signer, f.client, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, sahara.ErrUnexpectedResponse)
	assert.Equal(t, 3, f.legends.claims("1002"))
	assert.Empty(t, f.client.SentTxs())
}

func TestDailyDoesNotResendTxOnSecondRun(t *testing.T) {
	f := newDailyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.task.Run(ctx, f.signer, f.client, nil))
	require.NoError(t, f.task.Run(ctx, f.signer, f.client, nil))

	assert.Len(t, f.client.SentTxs(), 1)
}

func TestDailyWithoutBalanceGivesUp(t *testing.T) {
	f := newDailyFixture(t)
	f.client.SetBalance(f.signer.Address(), big.NewInt(0))

	err := f.task.Run(context.Background(), f.signer, f.client, nil)
	assert.ErrorIs(t, err, retry.ErrInsufficientBalance)
	assert.Equal(t, retry.GiveUp, retry.Classify(err))
}

func TestDailyCompletionKeyIsPerDay(t *testing.T) {
	f := newDailyFixture(t)
	day := time.Date(2025, 5, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "sahara_daily:2025-05-01", f.task.CompletionKey(day))
	assert.NotEqual(t, f.task.CompletionKey(day), f.task.CompletionKey(day.Add(2*time.Minute)))
}

func memeDeps(t *testing.T, src *evmtest.FakeClient) Deps {
	return Deps{
		Cfg:     &config.Config{Explorers: map[string]string{"base": "https://basescan.org/tx/"}},
		Log:     logger.Nop(),
		Store:   memory.NewStore(),
		Confirm: evm.ConfirmPolicy{Attempts: 2},
		Clients: func(_ context.Context, network string) (evm.EVMClient, error) {
			assert.Equal(t, "base", network)
			return src, nil
		},
	}
}

func memeParams() map[string]interface{} {
	return map[string]interface{}{
		"source_network": "base",
		"min_balance":    1,
		"amount_min":     0.001,
		"amount_max":     0.002,
	}
}

func TestMemeBridgeSkipsWhenBalanceIsEnough(t *testing.T) {
	src := evmtest.NewFakeClient(oneEther)
	task := NewMemeBridgeTask(memeDeps(t, src))
	pk, _ := crypto.GenerateKey()

	err := task.Run(context.Background(), evm.NewSigner(pk), evmtest.NewFakeClient(big.NewInt(0).Mul(oneEther, big.NewInt(2))), memeParams())
	require.NoError(t, err)
	assert.Empty(t, src.SentTxs())
}

func TestMemeBridgeBuysOnSourceNetwork(t *testing.T) {
	src := evmtest.NewFakeClient(oneEther)
	task := NewMemeBridgeTask(memeDeps(t, src))
	pk, _ := crypto.GenerateKey()

	err := task.Run(context.Background(), evm.NewSigner(pk), evmtest.NewFakeClient(big.NewInt(0)), memeParams())
	require.NoError(t, err)

	sent := src.SentTxs()
	require.Len(t, sent, 1)
	assert.Equal(t, common.HexToAddress("0x77A6ab7DC9096e7a311Eb9Bb4791494460F53c82"), *sent[0].To())
	assert.Equal(t, []byte{0x11, 0xcd}, sent[0].Data())
	assert.True(t, sent[0].Value().Cmp(big.NewInt(1_000_000_000_000_000)) >= 0)
	assert.True(t, sent[0].Value().Cmp(big.NewInt(2_000_000_000_000_000)) <= 0)
	assert.True(t, src.Closed)
}

func TestMemeBridgeSourceBalanceTooLow(t *testing.T) {
	src := evmtest.NewFakeClient(big.NewInt(1000))
	task := NewMemeBridgeTask(memeDeps(t, src))
	pk, _ := crypto.GenerateKey()

	err := task.Run(context.Background(), evm.NewSigner(pk), evmtest.NewFakeClient(big.NewInt(0)), memeParams())
	assert.ErrorIs(t, err, retry.ErrInsufficientBalance)
	assert.Empty(t, src.SentTxs())
}

func TestMemeBridgeNeedsSourceNetwork(t *testing.T) {
	task := NewMemeBridgeTask(memeDeps(t, nil))
	pk, _ := crypto.GenerateKey()
	params := memeParams()
	delete(params, "source_network")

	err := task.Run(context.Background(), evm.NewSigner(pk), evmtest.NewFakeClient(big.NewInt(0)), params)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestSelfTransferRejectsBadPercent(t *testing.T) {
	task := NewSelfTransferTask(Deps{Log: logger.Nop()})
	pk, _ := crypto.GenerateKey()
	err := task.Run(context.Background(), evm.NewSigner(pk), evmtest.NewFakeClient(oneEther),
		map[string]interface{}{"min_percent": 50, "max_percent": 20})
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestOnChainTasksNeedClient(t *testing.T) {
	pk, _ := crypto.GenerateKey()
	signer := evm.NewSigner(pk)
	for name, ctor := range Constructors() {
		err := ctor(Deps{Log: logger.Nop(), Sahara: &sahara.Client{}}).Run(context.Background(), signer, nil, memeParams())
		assert.ErrorIs(t, err, ErrClientRequired, name)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(types.TaskNameLogBalance, NewLogBalanceTask))
	assert.ErrorIs(t, r.Register(types.TaskNameLogBalance, NewLogBalanceTask), ErrTaskConstructorAlreadyRegistered)

	_, err := r.New(types.TaskNameMemeBridge, Deps{})
	assert.ErrorIs(t, err, ErrTaskConstructorNotFound)

	runner, err := r.New(types.TaskNameLogBalance, Deps{Log: logger.Nop()})
	require.NoError(t, err)
	assert.IsType(t, &LogBalanceTask{}, runner)
	assert.Equal(t, []types.TaskName{types.TaskNameLogBalance}, r.Names())
}

func TestFloatParam(t *testing.T) {
	params := map[string]interface{}{"i": 2, "f": 0.5, "s": "1.25", "bad": []int{1}}

	v, err := floatParam(params, "i", 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	v, err = floatParam(params, "f", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	v, err = floatParam(params, "s", 0)
	require.NoError(t, err)
	assert.Equal(t, 1.25, v)

	v, err = floatParam(params, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	_, err = floatParam(params, "bad", 0)
	assert.ErrorIs(t, err, ErrInvalidParam)
}
