// Package noop provides the model classifier used by rule-only builds.
package noop

import (
	"context"

	"github.com/arjun/sms-guard/internal/core"
)

// Classifier always reports that no model is available; the
// orchestrator then relies on the rule/contextual path alone.
type Classifier struct{}

// NewClassifier creates the no-op model classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns ErrModelDisabled.
func (c *Classifier) Classify(ctx context.Context, content string) (*core.ModelPrediction, error) {
	return nil, core.ErrModelDisabled
}

// Name identifies the classifier.
func (c *Classifier) Name() string {
	return "none"
}
