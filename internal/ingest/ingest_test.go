package ingest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// mockSource is a test double for sources.Source.
type mockSource struct {
	id      sources.ID
	records []sources.Record
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (m *mockSource) ID() sources.ID { return m.id }

func (m *mockSource) Fetch(ctx context.Context) ([]sources.Record, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.records, m.err
}

func record(name string) sources.Record {
	return &sources.NerdWalletRecord{Name: name, At: utc.Now()}
}

func TestFetchCollectsAllSources(t *testing.T) {
	f := New([]sources.Source{
		&mockSource{id: sources.ChaseID, records: []sources.Record{record("a"), record("b")}},
		&mockSource{id: sources.NerdWalletID, records: []sources.Record{record("c")}},
	})

	records, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestFetchStableOrderAcrossSources(t *testing.T) {
	// The slower first source must still contribute its records first.
	f := New([]sources.Source{
		&mockSource{id: sources.ChaseID, records: []sources.Record{record("a")}, delay: 30 * time.Millisecond},
		&mockSource{id: sources.NerdWalletID, records: []sources.Record{record("b")}},
	})

	records, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Key())
	assert.Equal(t, "b", records[1].Key())
}

func TestFetchPartialFailure(t *testing.T) {
	boom := errors.New("scrape exploded")
	f := New([]sources.Source{
		&mockSource{id: sources.ChaseID, records: []sources.Record{record("a")}},
		&mockSource{id: sources.DiscoverID, err: boom},
	})

	records, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, records, 1, "healthy source records survive a sibling failure")
}

func TestFetchPartialRecordsWithError(t *testing.T) {
	// A source can return records alongside its error; both are kept.
	f := New([]sources.Source{
		&mockSource{
			id:      sources.ChaseID,
			records: []sources.Record{record("a")},
			err:     errors.New("second page failed"),
		},
	})

	records, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Len(t, records, 1)
}

func TestFetchNoSources(t *testing.T) {
	records, err := New(nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchEachSourceOnce(t *testing.T) {
	srcs := []*mockSource{
		{id: sources.ChaseID},
		{id: sources.DiscoverID},
		{id: sources.NerdWalletID},
	}
	list := make([]sources.Source, len(srcs))
	for i, s := range srcs {
		list[i] = s
	}

	_, err := New(list, WithWorkers(2)).Fetch(context.Background())
	require.NoError(t, err)
	for _, s := range srcs {
		assert.Equal(t, int32(1), s.calls.Load())
	}
}

func TestFetchCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New([]sources.Source{
		&mockSource{id: sources.ChaseID, delay: time.Second},
	})
	_, err := f.Fetch(ctx)
	require.Error(t, err)
}
