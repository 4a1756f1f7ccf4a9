package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/tradecore-io/matchd/pkg/core"
)

func sampleTrade(i int) core.Trade {
	return core.Trade{
		ID:           fmt.Sprintf("trade-%d", i),
		Symbol:       "BTC-USDT",
		Price:        30000 + int64(i),
		Qty:          1,
		MakerOrderID: fmt.Sprintf("maker-%d", i),
		TakerOrderID: fmt.Sprintf("taker-%d", i),
		TakerSide:    "buy",
		ExecutedAt:   1700000000000 + int64(i),
	}
}

func TestJournalAppendRead(t *testing.T) {
	j, err := OpenTradeJournal(t.TempDir())
	if err != nil {
		t.Fatalf("OpenTradeJournal: %v", err)
	}
	defer j.Close()

	for i := 0; i < 5; i++ {
		if err := j.Append(sampleTrade(i)); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}
	if j.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", j.Len())
	}

	all, err := j.ReadFrom(0)
	if err != nil {
		t.Fatalf("ReadFrom(0): %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("ReadFrom(0) = %d trades, want 5", len(all))
	}
	for i, tr := range all {
		want := sampleTrade(i)
		if tr != want {
			t.Errorf("trade[%d] = %+v, want %+v", i, tr, want)
		}
	}

	tail, err := j.ReadFrom(3)
	if err != nil {
		t.Fatalf("ReadFrom(3): %v", err)
	}
	if len(tail) != 2 || tail[0].ID != "trade-3" {
		t.Errorf("ReadFrom(3) = %+v, want trades 3 and 4", tail)
	}

	if empty, err := j.ReadFrom(99); err != nil || len(empty) != 0 {
		t.Errorf("ReadFrom(past end) = %v, %v", empty, err)
	}
}

func TestJournalConcurrentAppends(t *testing.T) {
	j, err := OpenTradeJournal(t.TempDir())
	if err != nil {
		t.Fatalf("OpenTradeJournal: %v", err)
	}
	defer j.Close()

	// The engine's OnTrade hook fires outside the engine lock, so
	// appends from concurrent submissions overlap. Every append must
	// still land on its own sequence key.
	const (
		writers   = 4
		perWriter = 50
	)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				tr := sampleTrade(i)
				tr.ID = fmt.Sprintf("trade-%d-%d", w, i)
				if err := j.Append(tr); err != nil {
					t.Errorf("Append: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if j.Len() != writers*perWriter {
		t.Fatalf("Len() = %d, want %d (appends overwrote keys)", j.Len(), writers*perWriter)
	}
	all, err := j.ReadFrom(0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(all) != writers*perWriter {
		t.Fatalf("journal holds %d trades, want %d", len(all), writers*perWriter)
	}
	seen := make(map[string]bool, len(all))
	for _, tr := range all {
		if seen[tr.ID] {
			t.Errorf("trade %s journaled twice", tr.ID)
		}
		seen[tr.ID] = true
	}
}

func TestJournalResumesSequence(t *testing.T) {
	dir := t.TempDir()

	j, err := OpenTradeJournal(dir)
	if err != nil {
		t.Fatalf("OpenTradeJournal: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := j.Append(sampleTrade(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j2, err := OpenTradeJournal(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()

	if j2.Len() != 3 {
		t.Fatalf("reopened Len() = %d, want 3", j2.Len())
	}
	if err := j2.Append(sampleTrade(3)); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}

	all, err := j2.ReadFrom(0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(all) != 4 || all[3].ID != "trade-3" {
		t.Errorf("journal after reopen = %d trades (last %s), want 4 ending in trade-3",
			len(all), all[len(all)-1].ID)
	}
}
