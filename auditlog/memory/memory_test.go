package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/authgate/auditlog"
	"github.com/jmcleod/authgate/auditlog/memory"
)

func TestRecentNewestFirstWithFilterAndLimit(t *testing.T) {
	store := memory.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, userID := range []string{"u1", "u2", "u1", "u1"} {
		require.NoError(t, store.Append(auditlog.Entry{
			ID:        string(rune('1' + i)),
			Event:     "signin_success",
			UserID:    userID,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := store.Recent("u1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "4", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	all, err := store.Recent("", 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
