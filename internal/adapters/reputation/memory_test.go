package reputation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
)

func TestGetUnknownSender(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	_, err := s.Get(context.Background(), "NOBODY")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestImportanceMarkingSaturates(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.LearnFromImportanceMarking(ctx, "MYNTRA"))
	}

	rep, err := s.Get(ctx, "MYNTRA")
	require.NoError(t, err)
	assert.True(t, rep.PinnedToInbox)
	assert.InDelta(t, 0.95, rep.ImportanceScore, 1e-6)
	assert.EqualValues(t, 5, rep.MessageCount)
	assert.NotZero(t, rep.LastUpdatedMillis)
}

func TestSpamMarkingSaturates(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.LearnFromSpamMarking(ctx, "VM-PROMO"))
	rep, err := s.Get(ctx, "VM-PROMO")
	require.NoError(t, err)
	assert.True(t, rep.AutoSpam)
	assert.InDelta(t, 0.5, rep.SpamScore, 1e-6)

	require.NoError(t, s.LearnFromSpamMarking(ctx, "VM-PROMO"))
	rep, err = s.Get(ctx, "VM-PROMO")
	require.NoError(t, err)
	assert.InDelta(t, 0.95, rep.SpamScore, 1e-6)
}

func TestInboxMoveClearsAutoSpam(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.LearnFromSpamMarking(ctx, "MYSTORE"))
	require.NoError(t, s.LearnFromInboxMove(ctx, "MYSTORE"))

	rep, err := s.Get(ctx, "MYSTORE")
	require.NoError(t, err)
	assert.False(t, rep.AutoSpam)
	assert.InDelta(t, 0.4, rep.SpamScore, 1e-6)
	assert.InDelta(t, 0.1, rep.ImportanceScore, 1e-6)
}

func TestSpamScoreNeverNegative(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.LearnFromInboxMove(ctx, "FRIEND"))
	}
	rep, err := s.Get(ctx, "FRIEND")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rep.SpamScore, float32(0))
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.LearnFromImportanceMarking(ctx, "MYNTRA"))
	rep, err := s.Get(ctx, "MYNTRA")
	require.NoError(t, err)

	rep.ImportanceScore = 0
	again, err := s.Get(ctx, "MYNTRA")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, again.ImportanceScore, 1e-6)
}

func TestConcurrentMutationsAreAtomic(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = s.LearnFromInboxMove(ctx, "BUSY")
		}()
	}
	wg.Wait()

	rep, err := s.Get(ctx, "BUSY")
	require.NoError(t, err)
	assert.EqualValues(t, workers, rep.MessageCount)
	assert.InDelta(t, 0.95, rep.ImportanceScore, 1e-6)
	assert.Equal(t, 1, s.Len())
}
