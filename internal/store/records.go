package store

import (
	"encoding/binary"
	"fmt"

	"github.com/genledger/feesim/internal/record"
	"github.com/genledger/feesim/pkg/db"
	"github.com/genledger/feesim/pkg/log"
)

// Prefix constants for all store types.
const (
	prefixRecord byte = iota + 1
	prefixTables
)

// Records persists compressed path records in a KVStore, keyed by round
// count and content hash so a whole path length can be scanned in order.
type Records struct {
	db.KVStore
}

// NewRecords creates a record store over a KVStore.
func NewRecords(kv db.KVStore) *Records {
	return &Records{KVStore: kv}
}

// makeRecordKey builds prefix(1) + roundCount(1) + hash(8).
func makeRecordKey(roundCount int, hash uint64) []byte {
	key := make([]byte, 10)
	key[0] = prefixRecord
	key[1] = byte(roundCount)
	binary.BigEndian.PutUint64(key[2:], hash)
	return key
}

// PutRecord stores one path record.
func (s *Records) PutRecord(rec record.Record) error {
	raw, err := rec.Encode()
	if err != nil {
		return err
	}
	if err := s.Put(makeRecordKey(rec.RoundCount(), rec.Hash), raw); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	log.Store.Debug().
		Int("rounds", rec.RoundCount()).
		Str("hash", fmt.Sprintf("%016x", rec.Hash)).
		Msg("stored record")
	return nil
}

// PutRecords stores a set of path records in one atomic batch. Generation
// runs write thousands of records; committing them per batch keeps the
// store consistent if a run is interrupted.
func (s *Records) PutRecords(recs []record.Record) error {
	batch := s.NewBatch()
	defer batch.Close()
	for _, rec := range recs {
		raw, err := rec.Encode()
		if err != nil {
			return err
		}
		if err := batch.Put(makeRecordKey(rec.RoundCount(), rec.Hash), raw); err != nil {
			return fmt.Errorf("batch record: %w", err)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit record batch: %w", err)
	}
	log.Store.Debug().Int("records", len(recs)).Msg("stored record batch")
	return nil
}

// GetRecord retrieves one path record by round count and content hash.
func (s *Records) GetRecord(roundCount int, hash uint64) (record.Record, error) {
	raw, err := s.Get(makeRecordKey(roundCount, hash))
	if err != nil {
		return record.Record{}, fmt.Errorf("get record: %w", err)
	}
	return record.Decode(raw)
}

// RecordsByRoundCount retrieves every record of a given path length, in
// hash order.
func (s *Records) RecordsByRoundCount(roundCount int) ([]record.Record, error) {
	start := []byte{prefixRecord, byte(roundCount)}
	end := []byte{prefixRecord, byte(roundCount + 1)}
	iter, err := s.NewIterator(start, end)
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	var out []record.Record
	for iter.Next() {
		if !iter.Valid() {
			break
		}
		raw, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		rec, err := record.Decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// PutTables stores the lookup tables alongside the records.
func (s *Records) PutTables() error {
	raw, err := encodeTables()
	if err != nil {
		return err
	}
	if err := s.Put([]byte{prefixTables}, raw); err != nil {
		return fmt.Errorf("put lookup tables: %w", err)
	}
	return nil
}
