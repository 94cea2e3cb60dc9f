package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
)

func TestInsertAndGetMessage(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	msg := &core.Message{Sender: "HDFC-BANK", Content: "Your OTP is 123456", TimestampMillis: 1700000000000}
	id, err := s.InsertMessage(ctx, msg, core.CategoryInbox)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetMessageByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, msg.Sender, got.Sender)
	assert.Equal(t, msg.Content, got.Content)

	_, err = s.GetMessageByID(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRecentFromSenderNewestFirst(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.InsertMessage(ctx, &core.Message{
			Sender:          "MYNTRA",
			Content:         "Order update",
			TimestampMillis: int64(100 + i),
		}, core.CategoryInbox)
		require.NoError(t, err)
	}
	_, err := s.InsertMessage(ctx, &core.Message{Sender: "OTHER", Content: "Hello", TimestampMillis: 999}, core.CategoryInbox)
	require.NoError(t, err)

	msgs, err := s.RecentFromSender(ctx, "MYNTRA", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.EqualValues(t, 103, msgs[0].TimestampMillis)
	assert.EqualValues(t, 102, msgs[1].TimestampMillis)
	assert.EqualValues(t, 101, msgs[2].TimestampMillis)
	for _, m := range msgs {
		assert.Equal(t, "MYNTRA", m.Sender)
	}
}

func TestRecentFromSenderUnknown(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())

	msgs, err := s.RecentFromSender(context.Background(), "NOBODY", 5)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSenderIndexIsNormalized(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	_, err := s.InsertMessage(ctx, &core.Message{
		Sender:          " Myntra ",
		Content:         "Order update",
		TimestampMillis: 1,
	}, core.CategoryInbox)
	require.NoError(t, err)

	msgs, err := s.RecentFromSender(ctx, "MYNTRA", 5)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "MYNTRA", msgs[0].Sender)
}

func TestLatestAuditForMessage(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	id, err := s.InsertMessage(ctx, &core.Message{Sender: "VM-PROMO", Content: "Mega sale"}, core.CategorySpam)
	require.NoError(t, err)

	_, err = s.LatestAuditForMessage(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.InsertAudit(ctx, &core.ClassificationAudit{
		MessageID:  id,
		Category:   core.CategorySpam,
		Confidence: 0.9,
		Reasons:    []string{"Known spam sender pattern"},
		CreatedAt:  time.Now(),
	}))
	require.NoError(t, s.InsertAudit(ctx, &core.ClassificationAudit{
		MessageID:  id,
		Category:   core.CategoryInbox,
		Confidence: 1.0,
		Reasons:    []string{"User correction"},
		CreatedAt:  time.Now(),
	}))

	audit, err := s.LatestAuditForMessage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.CategoryInbox, audit.Category)
}

func TestAuditReasonsCopied(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	reasons := []string{"OTP detected"}
	require.NoError(t, s.InsertAudit(ctx, &core.ClassificationAudit{
		MessageID: "m1",
		Category:  core.CategoryInbox,
		Reasons:   reasons,
	}))
	reasons[0] = "mutated"

	audit, err := s.LatestAuditForMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"OTP detected"}, audit.Reasons)
}
