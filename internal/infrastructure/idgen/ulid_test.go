package idgen

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULIDGenerator_Monotonic(t *testing.T) {
	fixed := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	g := &ULIDGenerator{now: func() time.Time { return fixed }}

	prev := g.NewTransactionID()
	for range 1000 {
		next := g.NewTransactionID()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestULIDGenerator_UniqueAcrossGoroutines(t *testing.T) {
	g := NewULIDGenerator()

	const workers, perWorker = 8, 200
	ids := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				ids <- g.NewTransactionID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, workers*perWorker)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestParseTransactionID(t *testing.T) {
	g := NewULIDGenerator()
	id := g.NewTransactionID()

	parsed, err := ParseTransactionID(id)
	require.NoError(t, err)
	assert.Equal(t, id[len(TransactionPrefix):], parsed.String())

	_, err = ParseTransactionID("01HZX3ABCDEF")
	assert.Error(t, err)
	_, err = ParseTransactionID("TXN-not-a-ulid")
	assert.Error(t, err)
}
