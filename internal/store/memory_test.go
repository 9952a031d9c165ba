package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreInsertSelect(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "service_actions", map[string]any{"user_id": "521", "action_type": "email_sent"}))
	require.NoError(t, s.Insert(ctx, "service_actions", map[string]any{"user_id": "522", "action_type": "email_sent"}))
	require.NoError(t, s.Insert(ctx, "service_actions", map[string]any{"user_id": "521", "action_type": "reminder_created"}))

	all, err := s.Select(ctx, "service_actions", nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := s.Select(ctx, "service_actions", map[string]string{"user_id": "521"}, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	limited, err := s.Select(ctx, "service_actions", map[string]string{"user_id": "521"}, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "email_sent", limited[0]["action_type"])
}

func TestMemoryStoreInsertCopiesRecord(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	record := map[string]any{"user_id": "521"}
	require.NoError(t, s.Insert(ctx, "reminders", record))
	record["user_id"] = "mutated"

	got, err := s.Select(ctx, "reminders", nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "521", got[0]["user_id"])
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "reminders", map[string]any{"user_id": "521", "status": "active"}))
	require.NoError(t, s.Insert(ctx, "reminders", map[string]any{"user_id": "522", "status": "active"}))

	require.NoError(t, s.Delete(ctx, "reminders", map[string]string{"user_id": "521"}))

	left, err := s.Select(ctx, "reminders", nil, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "522", left[0]["user_id"])
}
