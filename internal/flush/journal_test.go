package flush

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalInitCreatesTable(t *testing.T) {
	db := &fakePostgres{}
	journal := NewJournal(db, testLogger())

	require.NoError(t, journal.Init(context.Background()))
	require.Len(t, db.executed, 1)
	assert.Contains(t, db.executed[0].query, "CREATE TABLE IF NOT EXISTS flush_episodes")
}

func TestJournalRecordFlush(t *testing.T) {
	db := &fakePostgres{}
	journal := NewJournal(db, testLogger())

	firedAt := time.Date(2025, 3, 1, 12, 0, 10, 0, time.UTC)
	m := Metrics{FlushCount: 2, PresenceEvents: 5}
	require.NoError(t, journal.RecordFlush(context.Background(), "restroom", firedAt, m))

	require.Len(t, db.executed, 1)
	q := db.executed[0]
	assert.True(t, strings.HasPrefix(strings.TrimSpace(q.query), "INSERT INTO flush_episodes"))
	require.Len(t, q.args, 5)

	_, ok := q.args[0].(uuid.UUID)
	assert.True(t, ok, "first argument should be the episode id")
	assert.Equal(t, "restroom", q.args[1])
	assert.Equal(t, firedAt, q.args[2])
	assert.Equal(t, int64(2), q.args[3])
	assert.Equal(t, int64(5), q.args[4])
}

func TestJournalRecordFlushSurfacesError(t *testing.T) {
	db := &fakePostgres{execErr: errors.New("connection reset")}
	journal := NewJournal(db, testLogger())

	err := journal.RecordFlush(context.Background(), "restroom", time.Now(), Metrics{})
	require.Error(t, err)
	assert.ErrorIs(t, err, db.execErr)
}
