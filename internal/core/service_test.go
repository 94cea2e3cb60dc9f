package core_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/adapters/cache"
	"github.com/arjun/sms-guard/internal/adapters/noop"
	"github.com/arjun/sms-guard/internal/adapters/reputation"
	"github.com/arjun/sms-guard/internal/adapters/store"
	"github.com/arjun/sms-guard/internal/contextual"
	"github.com/arjun/sms-guard/internal/core"
	"github.com/arjun/sms-guard/internal/rules"
	"github.com/arjun/sms-guard/internal/utils"
)

// stubModel is a scriptable model classifier. A non-zero delay is a
// plain sleep so deadline behavior in the orchestrator stays
// deterministic.
type stubModel struct {
	pred  *core.ModelPrediction
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (m *stubModel) Classify(ctx context.Context, content string) (*core.ModelPrediction, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.pred, m.err
}

func (m *stubModel) Name() string { return "stub" }

type fixture struct {
	svc        *core.Service
	reputation *reputation.MemoryStore
	messages   *store.MemoryStore
	contextual *contextual.Classifier
}

func newFixture(t *testing.T, model core.ModelClassifier, tweak func(*core.ServiceOptions)) *fixture {
	t.Helper()
	logger := zap.NewNop()

	ev := rules.NewEvaluator(logger)
	ctxc := contextual.NewClassifier(ev, logger)
	rep := reputation.NewMemoryStore(logger)
	msgs := store.NewMemoryStore(logger)
	rc := cache.NewLRUCache(100, 0, logger)

	opts := core.DefaultServiceOptions()
	opts.CacheEnabled = false
	opts.ModelTimeout = 200 * time.Millisecond
	if tweak != nil {
		tweak(&opts)
	}

	svc := core.NewService(ev, ctxc, model, rep, rc, msgs, utils.NewTextProcessor(logger), logger, opts)
	return &fixture{svc: svc, reputation: rep, messages: msgs, contextual: ctxc}
}

func neutralMessage(sender string) *core.Message {
	return &core.Message{
		Sender:          sender,
		Content:         "Monthly update from your neighbourhood library",
		TimestampMillis: 1700000000000,
	}
}

func TestClassifyAlwaysProducesACategory(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	messages := []*core.Message{
		{Sender: "HDFC-BANK", Content: "123456 is your OTP. Do not share."},
		{Sender: "VM-PROMO", Content: "Mega sale! Flat 70% off!!"},
		{Sender: "", Content: ""},
		{Sender: "+919876543210", Content: "see you at 6"},
		{Sender: "JK-NEWSLT", Content: "Monthly update from your neighbourhood library"},
	}
	valid := map[core.Category]bool{
		core.CategoryInbox:       true,
		core.CategorySpam:        true,
		core.CategoryNeedsReview: true,
	}
	for _, msg := range messages {
		res := f.svc.Classify(ctx, msg)
		require.NotNil(t, res, msg.Sender)
		assert.True(t, valid[res.Category], msg.Sender)
		assert.GreaterOrEqual(t, res.Confidence, float32(0))
		assert.LessOrEqual(t, res.Confidence, float32(1))
		assert.NotEmpty(t, res.Reasons, msg.Sender)
	}
}

func TestOTPGuardrailBeatsAutoSpam(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	require.NoError(t, f.reputation.LearnFromSpamMarking(ctx, "HDFC-BANK"))

	res := f.svc.Classify(ctx, &core.Message{
		Sender:  "HDFC-BANK",
		Content: "123456 is your OTP for txn of Rs.4999. Do not share.",
	})
	assert.Equal(t, core.CategoryInbox, res.Category)
	assert.EqualValues(t, 1.0, res.Confidence)
	assert.Equal(t, []string{"OTP detected"}, res.Reasons)
}

func TestPinnedSenderOverride(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	require.NoError(t, f.reputation.LearnFromImportanceMarking(ctx, "MYNTRA"))

	res := f.svc.Classify(ctx, neutralMessage("MYNTRA"))
	assert.Equal(t, core.CategoryInbox, res.Category)
	assert.InDelta(t, 0.95, res.Confidence, 1e-6)
	assert.Equal(t, []string{"Pinned sender"}, res.Reasons)
}

func TestAutoSpamOverrideAndReversal(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	require.NoError(t, f.reputation.LearnFromSpamMarking(ctx, "MYSTORE"))

	res := f.svc.Classify(ctx, neutralMessage("MYSTORE"))
	assert.Equal(t, core.CategorySpam, res.Category)
	assert.Equal(t, []string{"Sender marked auto-spam"}, res.Reasons)

	// An inbox move clears the flag; the sender is judged on content again.
	require.NoError(t, f.reputation.LearnFromInboxMove(ctx, "MYSTORE"))
	res = f.svc.Classify(ctx, neutralMessage("MYSTORE"))
	assert.Equal(t, core.CategoryNeedsReview, res.Category)
}

func TestHighImportanceSoftBias(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	// Inbox moves raise importance without pinning.
	for i := 0; i < 8; i++ {
		require.NoError(t, f.reputation.LearnFromInboxMove(ctx, "MYNTRA"))
	}
	rep, err := f.reputation.Get(ctx, "MYNTRA")
	require.NoError(t, err)
	require.False(t, rep.PinnedToInbox)
	require.GreaterOrEqual(t, rep.ImportanceScore, float32(0.75))

	res := f.svc.Classify(ctx, neutralMessage("MYNTRA"))
	assert.Equal(t, core.CategoryInbox, res.Category)
	assert.InDelta(t, 0.85, res.Confidence, 1e-6)
	assert.Equal(t, []string{"High sender importance"}, res.Reasons)
}

func TestHighSpamScoreSoftBias(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	// Two spam markings saturate the score; the inbox move then clears
	// the hard flag but leaves the score high.
	require.NoError(t, f.reputation.LearnFromSpamMarking(ctx, "MYSTORE"))
	require.NoError(t, f.reputation.LearnFromSpamMarking(ctx, "MYSTORE"))
	require.NoError(t, f.reputation.LearnFromInboxMove(ctx, "MYSTORE"))

	rep, err := f.reputation.Get(ctx, "MYSTORE")
	require.NoError(t, err)
	require.False(t, rep.AutoSpam)
	require.GreaterOrEqual(t, rep.SpamScore, float32(0.75))

	res := f.svc.Classify(ctx, neutralMessage("MYSTORE"))
	assert.Equal(t, core.CategorySpam, res.Category)
	assert.Equal(t, []string{"High sender spam score"}, res.Reasons)
}

func TestModelTimeoutFallsBackToRules(t *testing.T) {
	model := &stubModel{
		pred:  &core.ModelPrediction{Category: core.CategorySpam, Confidence: 0.99},
		delay: time.Second,
	}
	f := newFixture(t, model, func(o *core.ServiceOptions) {
		o.ModelTimeout = 50 * time.Millisecond
	})

	start := time.Now()
	res := f.svc.Classify(context.Background(), neutralMessage("JK-NEWSLT"))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.Equal(t, core.CategoryNeedsReview, res.Category)
	assert.Contains(t, res.Reasons, "Model timed out, using rule-based analysis")
}

func TestModelErrorFallsBackToRules(t *testing.T) {
	model := &stubModel{err: errors.New("backend unreachable")}
	f := newFixture(t, model, nil)

	res := f.svc.Classify(context.Background(), neutralMessage("JK-NEWSLT"))
	assert.Equal(t, core.CategoryNeedsReview, res.Category)
	assert.Contains(t, res.Reasons, "Model unavailable, using rule-based analysis")
}

func TestDisabledModelAddsNoFallbackReason(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)

	res := f.svc.Classify(context.Background(), neutralMessage("JK-NEWSLT"))
	assert.NotContains(t, res.Reasons, "Model unavailable, using rule-based analysis")
	assert.NotContains(t, res.Reasons, "Model timed out, using rule-based analysis")
}

func TestBlendHighConfidenceModelWins(t *testing.T) {
	model := &stubModel{pred: &core.ModelPrediction{Category: core.CategorySpam, Confidence: 0.9}}
	f := newFixture(t, model, nil)

	res := f.svc.Classify(context.Background(), neutralMessage("JK-NEWSLT"))
	assert.Equal(t, core.CategorySpam, res.Category)
	assert.InDelta(t, 0.9, res.Confidence, 1e-6)
	assert.Equal(t, []string{"High-confidence model prediction"}, res.Reasons)
	assert.Equal(t, "stub", res.ModelUsed)
}

func TestBlendAgreementBoostsConfidence(t *testing.T) {
	model := &stubModel{pred: &core.ModelPrediction{Category: core.CategoryNeedsReview, Confidence: 0.5}}
	f := newFixture(t, model, nil)

	res := f.svc.Classify(context.Background(), neutralMessage("JK-NEWSLT"))
	assert.Equal(t, core.CategoryNeedsReview, res.Category)
	assert.InDelta(t, 0.6, res.Confidence, 1e-3)
	assert.Contains(t, res.Reasons, "Model agrees with rule analysis")
	assert.Equal(t, "blend:stub", res.ModelUsed)
}

func TestBlendModerateDisagreementWeighsModel(t *testing.T) {
	model := &stubModel{pred: &core.ModelPrediction{Category: core.CategorySpam, Confidence: 0.7}}
	f := newFixture(t, model, nil)

	res := f.svc.Classify(context.Background(), neutralMessage("JK-NEWSLT"))
	assert.Equal(t, core.CategorySpam, res.Category)
	// 0.6*0.7 + 0.4*0.45
	assert.InDelta(t, 0.6, res.Confidence, 1e-3)
	assert.Contains(t, res.Reasons, "Blended with moderate-confidence model prediction")
	assert.Equal(t, "blend:stub", res.ModelUsed)
}

func TestBlendLowConfidenceModelIgnored(t *testing.T) {
	model := &stubModel{pred: &core.ModelPrediction{Category: core.CategorySpam, Confidence: 0.3}}
	f := newFixture(t, model, nil)

	res := f.svc.Classify(context.Background(), neutralMessage("JK-NEWSLT"))
	assert.Equal(t, core.CategoryNeedsReview, res.Category)
	assert.Contains(t, res.Reasons, "Low model confidence, using rule-based analysis")
}

func TestCacheShortCircuitsRepeatClassification(t *testing.T) {
	model := &stubModel{pred: &core.ModelPrediction{Category: core.CategorySpam, Confidence: 0.9}}
	f := newFixture(t, model, func(o *core.ServiceOptions) {
		o.CacheEnabled = true
	})
	ctx := context.Background()

	msg := neutralMessage("JK-NEWSLT")
	first := f.svc.Classify(ctx, msg)
	second := f.svc.Classify(ctx, msg)

	assert.EqualValues(t, 1, model.calls.Load())
	assert.Equal(t, first.Category, second.Category)
	assert.Equal(t, first.Reasons, second.Reasons)
}

func TestExplainIsPureAndStable(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	id, res := f.svc.Process(ctx, neutralMessage("JK-NEWSLT"))
	require.NotEmpty(t, id)

	first, err := f.svc.Explain(ctx, id)
	require.NoError(t, err)
	second, err := f.svc.Explain(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, res.Category, core.CategoryNeedsReview)

	// Explaining must not create reputation state.
	_, err = f.reputation.Get(ctx, "JK-NEWSLT")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestExplainUnknownMessage(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)

	_, err := f.svc.Explain(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCorrectionToSpamTakesEffect(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), func(o *core.ServiceOptions) {
		o.CacheEnabled = true
	})
	ctx := context.Background()

	msg := neutralMessage("MYSTORE")
	id, res := f.svc.Process(ctx, msg)
	require.NotEmpty(t, id)
	require.Equal(t, core.CategoryNeedsReview, res.Category)

	f.svc.HandleUserCorrection(ctx, id, core.CategorySpam, "junk")

	require.Eventually(t, func() bool {
		return f.svc.Classify(ctx, msg).Category == core.CategorySpam
	}, time.Second, 10*time.Millisecond)

	rep, err := f.reputation.Get(ctx, "MYSTORE")
	require.NoError(t, err)
	assert.True(t, rep.AutoSpam)
	assert.InDelta(t, 0.3, f.contextual.WeightFor("MYSTORE", core.CategorySpam), 1e-6)
}

func TestCorrectionInboxMoveAfterSpamVerdict(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	id, res := f.svc.Process(ctx, &core.Message{
		Sender:  "VM-PROMO",
		Content: "Mega sale this weekend",
	})
	require.NotEmpty(t, id)
	require.Equal(t, core.CategorySpam, res.Category)

	f.svc.HandleUserCorrection(ctx, id, core.CategoryInbox, "not spam")

	require.Eventually(t, func() bool {
		rep, err := f.reputation.Get(ctx, "VM-PROMO")
		return err == nil && rep.ImportanceScore > 0
	}, time.Second, 10*time.Millisecond)

	rep, err := f.reputation.Get(ctx, "VM-PROMO")
	require.NoError(t, err)
	assert.False(t, rep.PinnedToInbox)
	assert.InDelta(t, 0.1, rep.ImportanceScore, 1e-6)
}

func TestCorrectionInboxWithoutSpamHistoryPins(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	id, res := f.svc.Process(ctx, neutralMessage("MYNTRA"))
	require.NotEmpty(t, id)
	require.Equal(t, core.CategoryNeedsReview, res.Category)

	f.svc.HandleUserCorrection(ctx, id, core.CategoryInbox, "keep these")

	require.Eventually(t, func() bool {
		rep, err := f.reputation.Get(ctx, "MYNTRA")
		return err == nil && rep.PinnedToInbox
	}, time.Second, 10*time.Millisecond)
}

func TestCorrectionToNeedsReviewLeavesReputation(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	id, _ := f.svc.Process(ctx, neutralMessage("JK-NEWSLT"))
	require.NotEmpty(t, id)

	f.svc.HandleUserCorrection(ctx, id, core.CategoryNeedsReview, "unsure")
	time.Sleep(100 * time.Millisecond)

	_, err := f.reputation.Get(ctx, "JK-NEWSLT")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMixedCaseSenderUsesLearnedWeights(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)

	// Corrections learn under the normalized sender; a raw mixed-case
	// header must still see those weights.
	for i := 0; i < 5; i++ {
		f.contextual.Reinforce("MYNTRA", core.CategoryNeedsReview)
	}

	res := f.svc.Classify(context.Background(), neutralMessage("Myntra"))
	assert.Contains(t, res.Reasons, "Learned sender preference")
}

func TestMixedCaseSenderSharesHistory(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	id, _ := f.svc.Process(ctx, &core.Message{
		Sender:          "Myntra",
		Content:         "Another neutral note",
		TimestampMillis: 1,
	})
	require.NotEmpty(t, id)

	res := f.svc.Classify(ctx, neutralMessage("MYNTRA"))
	assert.Contains(t, res.Reasons, "Consistent with recent messages from sender")
}

func TestFastModelResultAlwaysBlended(t *testing.T) {
	model := &stubModel{pred: &core.ModelPrediction{Category: core.CategorySpam, Confidence: 0.9}}
	f := newFixture(t, model, nil)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		res := f.svc.Classify(ctx, neutralMessage("JK-NEWSLT"))
		require.Equal(t, core.CategorySpam, res.Category)
		require.NotContains(t, res.Reasons, "Model timed out, using rule-based analysis")
	}
}

func TestCorrectionForUnknownMessageIgnored(t *testing.T) {
	f := newFixture(t, noop.NewClassifier(), nil)
	ctx := context.Background()

	f.svc.HandleUserCorrection(ctx, "missing", core.CategorySpam, "")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, f.reputation.Len())
}
