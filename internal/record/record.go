// Package record implements the compressed path record: the persisted
// form of one processed test-case transaction, keyed by a 64-bit content
// hash, together with the lookup tables that decode its indices.
package record

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/fees"
	"github.com/genledger/feesim/internal/pathgen"
)

// Participant aggregates one address's activity: the (round, role) tuples
// it appeared in and its four cumulative quantities.
type Participant struct {
	Rounds  [][2]int `json:"r"`
	Cost    uint64   `json:"c"`
	Earned  uint64   `json:"e"`
	Slashed uint64   `json:"s"`
	Burned  uint64   `json:"b"`
}

// Record is the compressed form of one processed path. Participants are
// keyed by sequentially assigned ids starting at 1, in order of first
// appearance in the event log.
type Record struct {
	Path         []int               `json:"path"`
	Labels       []int               `json:"labels"`
	Participants map[int]Participant `json:"participants"`
	Invariants   uint32              `json:"invariants"`
	Hash         uint64              `json:"hash"`
}

// FromState compresses a processed transaction into its path record and
// stamps the content hash.
func FromState(path []pathgen.Node, st *fees.State, invariants uint32) (Record, error) {
	rec := Record{
		Path:         make([]int, len(path)),
		Labels:       make([]int, len(st.Labels)),
		Participants: make(map[int]Participant),
		Invariants:   invariants,
	}
	for i, n := range path {
		rec.Path[i] = int(n)
	}
	for i, l := range st.Labels {
		rec.Labels[i] = int(l)
	}

	ids := make(map[consensus.Address]int)
	for _, ev := range st.Events {
		id, ok := ids[ev.Address]
		if !ok {
			id = len(ids) + 1
			ids[ev.Address] = id
		}
		p := rec.Participants[id]
		if ev.RoundIndex != nil {
			p.Rounds = append(p.Rounds, [2]int{*ev.RoundIndex, int(ev.Role)})
		}
		p.Cost += ev.Cost
		p.Earned += ev.Earned
		p.Slashed += ev.Slashed
		p.Burned += ev.Burned
		rec.Participants[id] = p
	}
	// Drop participants the transaction never charged or paid.
	for id, p := range rec.Participants {
		if p.Cost == 0 && p.Earned == 0 && p.Slashed == 0 && p.Burned == 0 {
			delete(rec.Participants, id)
		}
	}

	hash, err := rec.ContentHash()
	if err != nil {
		return Record{}, err
	}
	rec.Hash = hash
	return rec, nil
}

// ContentHash returns the lower 64 bits of the SHA-256 digest over the
// record's canonical serialization, with the hash field itself zeroed.
func (r Record) ContentHash() (uint64, error) {
	unstamped := r
	unstamped.Hash = 0
	raw, err := json.Marshal(unstamped)
	if err != nil {
		return 0, fmt.Errorf("marshal record: %w", err)
	}
	sum := sha256.Sum256(raw)
	return binary.BigEndian.Uint64(sum[sha256.Size-8:]), nil
}

// Filename returns the canonical file name for the record: the round
// count followed by the content hash.
func (r Record) Filename() string {
	return fmt.Sprintf("%02d-%016x.json", len(r.Path)-2, r.Hash)
}

// Verify recomputes the content hash and checks the stamp.
func (r Record) Verify() error {
	hash, err := r.ContentHash()
	if err != nil {
		return err
	}
	if hash != r.Hash {
		return fmt.Errorf("record hash %016x does not match content %016x", r.Hash, hash)
	}
	return nil
}

// Decode parses a serialized record.
func Decode(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// Encode serializes the record.
func (r Record) Encode() ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return raw, nil
}

// RoundCount is the number of rounds on the record's path, excluding the
// terminals.
func (r Record) RoundCount() int {
	if len(r.Path) < 2 {
		return 0
	}
	return len(r.Path) - 2
}
