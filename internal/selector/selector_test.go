package selector

import (
	"testing"

	"sahara/internal/config"
	"sahara/internal/logger"
	"sahara/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *config.Config {
	return &config.Config{Tasks: []config.TaskConfigEntry{
		{Name: types.TaskNameLogBalance, Network: "sahara", Enabled: true},
		{Name: types.TaskNameMemeBridge, Network: "sahara", Enabled: false},
		{Name: types.TaskNameSelfTransfer, Network: "sahara", Enabled: true},
		{Name: types.TaskNameDaily, Network: "sahara", Enabled: true},
	}}
}

func names(entries []config.TaskConfigEntry) []types.TaskName {
	out := make([]types.TaskName, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestExplicitSequenceSkipsDisabled(t *testing.T) {
	cfg := baseConfig()
	cfg.Actions.ExplicitTaskSequence = []string{"sahara_daily", "meme_bridge", "log_balance", "sahara_daily"}

	got, err := NewSelector(cfg, logger.Nop()).SelectTasks()
	require.NoError(t, err)
	assert.Equal(t, []types.TaskName{types.TaskNameDaily, types.TaskNameLogBalance, types.TaskNameDaily}, names(got))
}

func TestExplicitSequenceWithNothingEnabled(t *testing.T) {
	cfg := baseConfig()
	cfg.Actions.ExplicitTaskSequence = []string{"meme_bridge"}

	_, err := NewSelector(cfg, logger.Nop()).SelectTasks()
	assert.ErrorIs(t, err, ErrNoValidTasksSelected)
}

func TestRandomSelectionSequentialOrder(t *testing.T) {
	cfg := baseConfig()
	cfg.Actions.ActionsPerAccount = config.MinMax{Min: 6, Max: 6}
	cfg.Actions.TaskOrder = types.TaskOrderSequential

	got, err := NewSelector(cfg, logger.Nop()).SelectTasks()
	require.NoError(t, err)
	require.Len(t, got, 6)

	order := map[types.TaskName]int{types.TaskNameLogBalance: 0, types.TaskNameSelfTransfer: 2, types.TaskNameDaily: 3}
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, order[got[i-1].Name], order[got[i].Name])
		assert.NotEqual(t, types.TaskNameMemeBridge, got[i].Name)
	}
}

func TestRandomSelectionZeroActions(t *testing.T) {
	got, err := NewSelector(baseConfig(), logger.Nop()).SelectTasks()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNoEnabledTasks(t *testing.T) {
	cfg := &config.Config{Tasks: []config.TaskConfigEntry{{Name: types.TaskNameDaily}}}
	_, err := NewSelector(cfg, logger.Nop()).SelectTasks()
	assert.ErrorIs(t, err, ErrNoValidTasksSelected)
}
