package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genledger/feesim/internal/fees"
	"github.com/genledger/feesim/internal/invariants"
	"github.com/genledger/feesim/internal/pathgen"
	"github.com/genledger/feesim/internal/record"
	"github.com/genledger/feesim/pkg/db/pebble"
)

func newStore(t *testing.T) *Records {
	t.Helper()
	kv, err := pebble.NewKVStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, kv.Close())
	})
	return NewRecords(kv)
}

func generateRecords(t *testing.T, maxRounds int) []record.Record {
	t.Helper()
	pool := pathgen.AddressPool(pathgen.RequiredPool(maxRounds))
	registry := invariants.NewRegistry()
	var out []record.Record
	for _, path := range pathgen.Paths(maxRounds) {
		rounds, budget := pathgen.Build(path, pathgen.BuildParams{
			LeaderTimeout:     100,
			ValidatorsTimeout: 200,
			Pool:              pool,
		})
		st := fees.Process(pool, rounds, budget)
		rec, err := record.FromState(path, st, registry.Bitfield(st))
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func Test_PutGetRecord(t *testing.T) {
	records := newStore(t)
	for _, rec := range generateRecords(t, 2) {
		require.NoError(t, records.PutRecord(rec))
		got, err := records.GetRecord(rec.RoundCount(), rec.Hash)
		require.NoError(t, err)
		require.Equal(t, rec, got)
	}
}

func Test_PutRecordsBatch(t *testing.T) {
	records := newStore(t)
	all := generateRecords(t, 2)
	require.NoError(t, records.PutRecords(all))
	for _, rec := range all {
		got, err := records.GetRecord(rec.RoundCount(), rec.Hash)
		require.NoError(t, err)
		require.Equal(t, rec, got)
	}
}

func Test_PutRecordsEmptyBatch(t *testing.T) {
	records := newStore(t)
	require.NoError(t, records.PutRecords(nil))
}

func Test_GetRecordNotFound(t *testing.T) {
	records := newStore(t)
	_, err := records.GetRecord(3, 0xdeadbeef)
	require.Error(t, err)
}

func Test_RecordsByRoundCount(t *testing.T) {
	records := newStore(t)
	all := generateRecords(t, 2)
	perLength := make(map[int]int)
	for _, rec := range all {
		require.NoError(t, records.PutRecord(rec))
		perLength[rec.RoundCount()]++
	}
	for length, want := range perLength {
		got, err := records.RecordsByRoundCount(length)
		require.NoError(t, err)
		require.Len(t, got, want)
		for _, rec := range got {
			require.Equal(t, length, rec.RoundCount())
			require.NoError(t, rec.Verify())
		}
	}
}

func Test_PutTables(t *testing.T) {
	records := newStore(t)
	require.NoError(t, records.PutTables())
	raw, err := records.Get([]byte{prefixTables})
	require.NoError(t, err)
	require.NotEmpty(t, raw)
}
