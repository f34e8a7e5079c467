package statusrunner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecavalidator/internal/domain"
)

type memStore struct {
	mu      sync.Mutex
	records []domain.StatusRecord
	err     error
}

func (m *memStore) SaveStatus(_ context.Context, records []domain.StatusRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, records...)
	return nil
}

func (m *memStore) ListStatus(context.Context, string, int) ([]domain.StatusRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StatusRecord(nil), m.records...), nil
}

func rec(hash string) domain.StatusRecord {
	return domain.StatusRecord{RepoURL: "https://github.com/eclipse/x", CommitHash: hash, Verdict: domain.VerdictPass}
}

func TestRunner_SavesAndDrainsOnShutdown(t *testing.T) {
	store := &memStore{}
	r := New(store, 16, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Record(context.Background(), rec("a"), rec("b")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 3)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}

	recs, err := store.ListStatus(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 10)
	assert.ErrorIs(t, r.Record(context.Background(), rec("late")), ErrStopped)
}

func TestRunner_QueueFull(t *testing.T) {
	r := New(&memStore{}, 1, nil)

	require.NoError(t, r.Record(context.Background(), rec("a")))
	assert.ErrorIs(t, r.Record(context.Background(), rec("b")), ErrQueueFull)
	assert.NoError(t, r.Record(context.Background()), "empty batches are ignored")
}

func TestRunner_StoreErrorsAreNotFatal(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	r := New(store, 4, nil)
	require.NoError(t, r.Record(context.Background(), rec("a")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx, 1)

	recs, _ := store.ListStatus(context.Background(), "", 0)
	assert.Empty(t, recs)
}
