// Package storage persists the execution trail. The book itself is
// deliberately not persisted: on restart the engine starts from an
// empty book and the journal only serves audit and replay of trades.
package storage

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/tradecore-io/matchd/pkg/core"
)

// TradeJournal is an append-only record of executed trades backed by
// pebble. Keys are t:<8-byte big-endian sequence>, so iteration order
// is append order. Appends are serialized internally: the engine's
// OnTrade hook fires outside the engine lock, so concurrent
// submissions reach Append concurrently. Reads may run alongside
// appends.
type TradeJournal struct {
	db *pebble.DB

	mu   sync.Mutex
	next uint64 // next sequence to assign; guarded by mu
}

func OpenTradeJournal(path string) (*TradeJournal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open trade journal: %w", err)
	}
	j := &TradeJournal{db: db}

	// Resume the sequence from the last persisted entry.
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("t:"),
		UpperBound: []byte("t;"), // ';' sorts just after ':'
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open trade journal: %w", err)
	}
	if iter.Last() {
		key := iter.Key()
		if len(key) == 10 {
			j.next = seqFromKey(key) + 1
		}
	}
	if err := iter.Close(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open trade journal: %w", err)
	}
	return j, nil
}

func (j *TradeJournal) Close() error { return j.db.Close() }

// Len returns the number of journaled trades.
func (j *TradeJournal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.next
}

func kTrade(seq uint64) []byte { return append([]byte("t:"), seqKey(seq)...) }

func seqFromKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[2:])
}

// Append persists one trade at the next sequence number. Safe for
// concurrent callers; each append claims a distinct sequence key.
func (j *TradeJournal) Append(t core.Trade) error {
	val, err := encodeGob(t)
	if err != nil {
		return fmt.Errorf("encode trade %s: %w", t.ID, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.db.Set(kTrade(j.next), val, pebble.Sync); err != nil {
		return fmt.Errorf("journal trade %s: %w", t.ID, err)
	}
	j.next++
	return nil
}

// ReadFrom returns all journaled trades with sequence >= seq, in
// append order.
func (j *TradeJournal) ReadFrom(seq uint64) ([]core.Trade, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: kTrade(seq),
		UpperBound: []byte("t;"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []core.Trade
	for valid := iter.First(); valid; valid = iter.Next() {
		var t core.Trade
		if err := decodeGob(iter.Value(), &t); err != nil {
			return nil, fmt.Errorf("decode trade at %x: %w", iter.Key(), err)
		}
		out = append(out, t)
	}
	return out, iter.Error()
}
