package pebble

import (
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/genledger/feesim/pkg/db"
)

// Batch buffers writes and commits them atomically. A batch is single-use:
// once committed or closed it rejects further operations.
type Batch struct {
	batch *pebble.Batch
	done  atomic.Bool
}

func (p *KVStore) NewBatch() db.Batch {
	return &Batch{batch: p.db.NewBatch()}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.batch.Set(key, value, nil)
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.batch.Delete(key, nil)
}

// Commit flushes the batch durably and marks it done.
func (b *Batch) Commit() error {
	if b.done.Load() {
		return ErrBatchDone
	}
	if err := b.batch.Commit(pebble.Sync); err != nil {
		return err
	}
	b.done.Store(true)
	return nil
}

// Close releases the batch; closing after Commit is a no-op.
func (b *Batch) Close() error {
	if !b.done.CompareAndSwap(false, true) {
		return nil
	}
	return b.batch.Close()
}
