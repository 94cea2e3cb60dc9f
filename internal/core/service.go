package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/patterns"
	"github.com/arjun/sms-guard/internal/utils"
)

// ServiceOptions carries the tunable parameters of the engine.
type ServiceOptions struct {
	Preferences  Preferences
	Blend        BlendConfig
	ModelTimeout time.Duration
	CacheEnabled bool
	CacheTTL     time.Duration
	HistoryLimit int
}

// DefaultServiceOptions returns the documented defaults.
func DefaultServiceOptions() ServiceOptions {
	return ServiceOptions{
		Preferences:  DefaultPreferences(),
		Blend:        DefaultBlendConfig(),
		ModelTimeout: 500 * time.Millisecond,
		CacheEnabled: true,
		CacheTTL:     time.Hour,
		HistoryLimit: 5,
	}
}

// Service is the classification orchestrator. It owns the result cache,
// mediates all reputation access, races the model classifier against
// the rule/contextual path, and never returns an error for a
// well-formed message.
type Service struct {
	rules      RuleEvaluator
	contextual ContextualClassifier
	model      ModelClassifier
	reputation ReputationStore
	cache      ResultCache
	store      MessageStore
	text       *utils.TextProcessor
	lib        *patterns.Library
	logger     *zap.Logger
	opts       ServiceOptions
}

// NewService creates the orchestrator. model and store may be backed by
// no-op implementations for rule-only or storeless builds.
func NewService(
	rules RuleEvaluator,
	contextual ContextualClassifier,
	model ModelClassifier,
	reputation ReputationStore,
	cache ResultCache,
	store MessageStore,
	text *utils.TextProcessor,
	logger *zap.Logger,
	opts ServiceOptions,
) *Service {
	return &Service{
		rules:      rules,
		contextual: contextual,
		model:      model,
		reputation: reputation,
		cache:      cache,
		store:      store,
		text:       text,
		lib:        patterns.Default(),
		logger:     logger,
		opts:       opts,
	}
}

// Classify produces exactly one category for the message. Worst case is
// NEEDS_REVIEW at low confidence; collaborator failures degrade to "no
// signal" and are logged, never propagated.
func (s *Service) Classify(ctx context.Context, msg *Message) *ClassificationResult {
	fp := s.text.Fingerprint(msg.Sender, msg.Content)

	if s.opts.CacheEnabled {
		if res, ok := s.cache.Lookup(fp); ok {
			s.logger.Debug("Cache hit", zap.String("fingerprint", fp))
			return res
		}
	}

	res := s.decide(ctx, msg, true, true)
	res.AnalyzedAt = time.Now()

	if s.opts.CacheEnabled {
		s.cache.Store(fp, res, s.opts.CacheTTL)
	}
	return res
}

// Process classifies the message and persists it with its audit record.
// Persistence failures are logged; the result is still returned.
func (s *Service) Process(ctx context.Context, msg *Message) (string, *ClassificationResult) {
	res := s.Classify(ctx, msg)

	id, err := s.store.InsertMessage(ctx, msg, res.Category)
	if err != nil {
		s.logger.Error("Failed to persist message", zap.Error(err))
		return "", res
	}
	audit := &ClassificationAudit{
		MessageID:  id,
		Category:   res.Category,
		Confidence: res.Confidence,
		Reasons:    res.Reasons,
		CreatedAt:  time.Now(),
	}
	if err := s.store.InsertAudit(ctx, audit); err != nil {
		s.logger.Error("Failed to persist audit record", zap.Error(err), zap.String("message_id", id))
	}
	return id, res
}

// Explain returns the reasons behind a past classification. The call is
// read-only: the contextual classifier runs in its pure mode, the model
// and cache are skipped, and learned state is untouched, so repeated
// calls return identical output.
func (s *Service) Explain(ctx context.Context, messageID string) ([]string, error) {
	msg, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	res := s.decide(ctx, msg, false, false)
	return res.Reasons, nil
}

// HandleUserCorrection applies a user's corrected category. Learning is
// best-effort and asynchronous; failures are logged and never surfaced
// to the caller.
func (s *Service) HandleUserCorrection(ctx context.Context, messageID string, corrected Category, note string) {
	msg, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		s.logger.Warn("Correction for unknown message",
			zap.String("message_id", messageID), zap.Error(err))
		return
	}

	var previous Category
	if audit, err := s.store.LatestAuditForMessage(ctx, messageID); err == nil {
		previous = audit.Category
	}

	sender := s.text.NormalizeSender(msg.Sender)
	fp := s.text.Fingerprint(msg.Sender, msg.Content)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Learning task panicked", zap.Any("panic", r))
			}
		}()
		lctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.learn(lctx, sender, corrected, previous, note)
		s.cache.Delete(fp)
	}()
}

func (s *Service) learn(ctx context.Context, sender string, corrected, previous Category, note string) {
	var err error
	switch corrected {
	case CategorySpam:
		err = s.reputation.LearnFromSpamMarking(ctx, sender)
	case CategoryInbox:
		if previous == CategorySpam {
			err = s.reputation.LearnFromInboxMove(ctx, sender)
		} else {
			err = s.reputation.LearnFromImportanceMarking(ctx, sender)
		}
	}
	if err != nil {
		s.logger.Warn("Reputation learning failed",
			zap.String("sender", sender), zap.Error(err))
	}

	if s.opts.Preferences.LearnFromFeedback && corrected != CategoryNeedsReview {
		s.contextual.Reinforce(sender, corrected)
	}
	s.logger.Info("Applied user correction",
		zap.String("sender", sender),
		zap.String("corrected", string(corrected)),
		zap.String("note", note))
}

// decide runs the guardrail/override/blend pipeline. useModel gates the
// model race; mutate gates contextual weight updates. Both are false
// for explain queries.
func (s *Service) decide(ctx context.Context, msg *Message, useModel, mutate bool) *ClassificationResult {
	sender := s.text.NormalizeSender(msg.Sender)

	// OTP guardrail. Highest priority; not overridable by reputation.
	if s.lib.MatchesOTP(msg.Content) {
		return &ClassificationResult{
			Category:   CategoryInbox,
			Confidence: 1.0,
			Reasons:    []string{"OTP detected"},
			ModelUsed:  "guardrail",
		}
	}

	rep := s.reputationFor(ctx, sender)
	if rep != nil {
		if rep.PinnedToInbox {
			return &ClassificationResult{
				Category:   CategoryInbox,
				Confidence: 0.95,
				Reasons:    []string{"Pinned sender"},
				ModelUsed:  "reputation",
			}
		}
		if rep.AutoSpam {
			return &ClassificationResult{
				Category:   CategorySpam,
				Confidence: 0.95,
				Reasons:    []string{"Sender marked auto-spam"},
				ModelUsed:  "reputation",
			}
		}
	}

	rule := s.rules.Evaluate(sender, msg.Content, s.opts.Preferences)

	if rep != nil {
		if rep.ImportanceScore >= 0.75 && rule.Category != CategorySpam {
			return &ClassificationResult{
				Category:   CategoryInbox,
				Confidence: 0.85,
				Reasons:    []string{"High sender importance"},
				ModelUsed:  "reputation",
			}
		}
		if rep.SpamScore >= 0.75 {
			return &ClassificationResult{
				Category:   CategorySpam,
				Confidence: 0.85,
				Reasons:    []string{"High sender spam score"},
				ModelUsed:  "reputation",
			}
		}
	}

	// Race the model against the synchronous rule/contextual path.
	type modelOutcome struct {
		pred *ModelPrediction
		err  error
	}
	var modelCh chan modelOutcome
	var modelCtx context.Context
	if useModel && s.model != nil {
		modelCh = make(chan modelOutcome, 1)
		var cancel context.CancelFunc
		modelCtx, cancel = context.WithTimeout(ctx, s.opts.ModelTimeout)
		go func() {
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Model classifier panicked", zap.Any("panic", r))
					modelCh <- modelOutcome{err: ErrModelDisabled}
				}
			}()
			pred, err := s.model.Classify(modelCtx, msg.Content)
			modelCh <- modelOutcome{pred: pred, err: err}
		}()
	}

	// Contextual weights and history rows are keyed by the normalized
	// sender, same as the reputation rows.
	norm := &Message{Sender: sender, Content: msg.Content, TimestampMillis: msg.TimestampMillis}
	ctxRes := s.contextualResult(norm, rule, mutate)

	if modelCh == nil {
		return ctxRes
	}

	select {
	case out := <-modelCh:
		if out.err != nil || out.pred == nil {
			if out.err != ErrModelDisabled {
				s.logger.Warn("Model classification failed", zap.Error(out.err))
				ctxRes.Reasons = append(ctxRes.Reasons, "Model unavailable, using rule-based analysis")
			}
			return ctxRes
		}
		return s.blend(ctxRes, out.pred)
	case <-modelCtx.Done():
		// A finished task cancels its own context; drain the channel
		// before declaring a timeout.
		select {
		case out := <-modelCh:
			if out.err != nil || out.pred == nil {
				if out.err != ErrModelDisabled {
					s.logger.Warn("Model classification failed", zap.Error(out.err))
					ctxRes.Reasons = append(ctxRes.Reasons, "Model unavailable, using rule-based analysis")
				}
				return ctxRes
			}
			return s.blend(ctxRes, out.pred)
		default:
		}
		s.logger.Debug("Model classifier timed out",
			zap.Duration("deadline", s.opts.ModelTimeout))
		ctxRes.Reasons = append(ctxRes.Reasons, "Model timed out, using rule-based analysis")
		return ctxRes
	}
}

// contextualResult guards the contextual classifier; a panic there
// degrades to the bare rule result instead of failing the pipeline.
func (s *Service) contextualResult(msg *Message, rule RuleResult, mutate bool) (res *ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Contextual classifier panicked", zap.Any("panic", r))
			res = &ClassificationResult{
				Category:   rule.Category,
				Confidence: 0.4,
				Reasons:    append(rule.Signals, "Degraded: context unavailable"),
				ModelUsed:  "rules",
			}
		}
	}()

	history := s.recentHistory(msg)
	return s.contextual.Classify(msg, rule, history, s.opts.Preferences, mutate)
}

func (s *Service) recentHistory(msg *Message) []*Message {
	if s.store == nil {
		return nil
	}
	hctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	sender := s.text.NormalizeSender(msg.Sender)
	history, err := s.store.RecentFromSender(hctx, sender, s.opts.HistoryLimit)
	if err != nil {
		s.logger.Warn("History query failed, continuing without it",
			zap.String("sender", sender), zap.Error(err))
		return nil
	}
	return history
}

// blend combines the model prediction with the rule/contextual result
// according to the configured thresholds.
func (s *Service) blend(ctxRes *ClassificationResult, pred *ModelPrediction) *ClassificationResult {
	b := s.opts.Blend
	modelName := s.model.Name()

	if pred.Confidence >= b.HighConfidence {
		return &ClassificationResult{
			Category:   pred.Category,
			Confidence: pred.Confidence,
			Reasons:    []string{"High-confidence model prediction"},
			ModelUsed:  modelName,
		}
	}

	if pred.Category == ctxRes.Category {
		conf := ctxRes.Confidence
		if pred.Confidence > conf {
			conf = pred.Confidence
		}
		conf += b.AgreementBoost
		if conf > 0.99 {
			conf = 0.99
		}
		ctxRes.Confidence = conf
		ctxRes.Reasons = append(ctxRes.Reasons, "Model agrees with rule analysis")
		ctxRes.ModelUsed = "blend:" + modelName
		return ctxRes
	}

	if pred.Confidence >= b.ModerateConfidence {
		conf := b.ModelWeight*pred.Confidence + (1-b.ModelWeight)*ctxRes.Confidence
		reasons := append(ctxRes.Reasons, "Blended with moderate-confidence model prediction")
		return &ClassificationResult{
			Category:   pred.Category,
			Confidence: conf,
			Reasons:    reasons,
			ModelUsed:  "blend:" + modelName,
		}
	}

	ctxRes.Reasons = append(ctxRes.Reasons, "Low model confidence, using rule-based analysis")
	return ctxRes
}

// reputationFor fetches the sender's learned state. Absence is normal;
// store failures are logged and treated as no signal.
func (s *Service) reputationFor(ctx context.Context, sender string) *SenderReputation {
	if s.reputation == nil {
		return nil
	}
	rep, err := s.reputation.Get(ctx, sender)
	if err != nil {
		if err != ErrNotFound {
			s.logger.Warn("Reputation lookup failed, continuing without it",
				zap.String("sender", sender), zap.Error(err))
		}
		return nil
	}
	return rep
}
