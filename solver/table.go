package solver

import (
	"fmt"
	"sync"
)

// Entry accumulates cumulative regret and strategy weight for one infoset.
// The vectors are sized to the infoset's legal action count at creation and
// never change length afterwards; the abstraction fixes the action set.
type Entry struct {
	mu          sync.Mutex
	Regret      []float64
	StrategySum []float64
	Normalising float64
}

func newEntry(actions int) *Entry {
	return &Entry{
		Regret:      make([]float64, actions),
		StrategySum: make([]float64, actions),
	}
}

// Actions returns the fixed legal-action count for the infoset.
func (e *Entry) Actions() int {
	return len(e.Regret)
}

// Strategy returns the regret-matching distribution: positive regrets
// normalised, or uniform when no action has positive regret.
func (e *Entry) Strategy() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return strategyLocked(e.Regret)
}

func strategyLocked(regret []float64) []float64 {
	strat := make([]float64, len(regret))
	total := 0.0
	for i, r := range regret {
		if r > 0 {
			strat[i] = r
			total += r
		}
	}
	if total <= 0 {
		uniform := 1.0 / float64(len(strat))
		for i := range strat {
			strat[i] = uniform
		}
		return strat
	}
	for i := range strat {
		strat[i] /= total
	}
	return strat
}

// AddRegrets accumulates per-action counterfactual regrets. With cfrPlus the
// cumulative values are clamped at zero after the update (CFR+).
func (e *Entry) AddRegrets(regrets []float64, cfrPlus bool) {
	e.mu.Lock()
	for i := range regrets {
		e.Regret[i] += regrets[i]
		if cfrPlus && e.Regret[i] < 0 {
			e.Regret[i] = 0
		}
	}
	e.mu.Unlock()
}

// AddStrategy accumulates the current strategy into the average, scaled by
// the iteration's averaging weight.
func (e *Entry) AddStrategy(strategy []float64, weight float64) {
	e.mu.Lock()
	for i := range strategy {
		e.StrategySum[i] += weight * strategy[i]
	}
	e.Normalising += weight
	e.mu.Unlock()
}

func (e *Entry) scaleStrategy(factor float64) {
	e.mu.Lock()
	for i := range e.StrategySum {
		e.StrategySum[i] *= factor
	}
	e.Normalising *= factor
	e.mu.Unlock()
}

// AverageStrategy normalises the cumulative strategy weight, falling back to
// uniform for an unvisited infoset.
func (e *Entry) AverageStrategy() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	strat := make([]float64, len(e.StrategySum))
	if e.Normalising <= 0 {
		uniform := 1.0 / float64(len(strat))
		for i := range strat {
			strat[i] = uniform
		}
		return strat
	}
	for i := range strat {
		strat[i] = e.StrategySum[i] / e.Normalising
	}
	return strat
}

func (e *Entry) snapshot() EntrySnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EntrySnapshot{
		Regret:      append([]float64(nil), e.Regret...),
		StrategySum: append([]float64(nil), e.StrategySum...),
		Normalising: e.Normalising,
	}
}

const (
	tableShardCount = 64
	tableShardMask  = tableShardCount - 1
)

type tableShard struct {
	mu  sync.RWMutex
	ids map[string]int32
}

// Table is the information-set store: an arena of entries addressed by a
// dense integer id, with the string key kept as a secondary index sharded to
// spread lock contention across solver workers. Entries are never removed.
type Table struct {
	shards [tableShardCount]tableShard

	mu      sync.RWMutex
	entries []*Entry
	keys    []string // parallel to entries, for serialisation
}

// NewTable returns an empty store.
func NewTable() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i].ids = make(map[string]int32)
	}
	return t
}

func (t *Table) shardFor(key string) *tableShard {
	return &t.shards[fnv32(key)&tableShardMask]
}

// GetOrCreate returns the entry id for the key, creating a fresh entry with
// the given action count on first sight. A mismatched action count for an
// existing key signals a key-construction bug and is returned as an error.
func (t *Table) GetOrCreate(key string, actions int) (int32, *Entry, error) {
	shard := t.shardFor(key)

	shard.mu.RLock()
	id, ok := shard.ids[key]
	shard.mu.RUnlock()
	if !ok {
		shard.mu.Lock()
		if id, ok = shard.ids[key]; !ok {
			id = t.appendEntry(key, actions)
			shard.ids[key] = id
		}
		shard.mu.Unlock()
	}

	entry := t.EntryAt(id)
	if entry.Actions() != actions {
		return 0, nil, fmt.Errorf("infoset %q has %d actions, got %d", key, entry.Actions(), actions)
	}
	return id, entry, nil
}

// Lookup returns the entry id for a key if present.
func (t *Table) Lookup(key string) (int32, bool) {
	shard := t.shardFor(key)
	shard.mu.RLock()
	id, ok := shard.ids[key]
	shard.mu.RUnlock()
	return id, ok
}

// EntryAt returns the entry in the arena slot id.
func (t *Table) EntryAt(id int32) *Entry {
	t.mu.RLock()
	e := t.entries[id]
	t.mu.RUnlock()
	return e
}

func (t *Table) appendEntry(key string, actions int) int32 {
	t.mu.Lock()
	id := int32(len(t.entries))
	t.entries = append(t.entries, newEntry(actions))
	t.keys = append(t.keys, key)
	t.mu.Unlock()
	return id
}

// Size returns the number of infosets tracked.
func (t *Table) Size() int {
	t.mu.RLock()
	n := len(t.entries)
	t.mu.RUnlock()
	return n
}

// ScaleStrategy multiplies every entry's accumulated strategy mass by
// factor. Averaging normalises per entry, so relative weights within an
// entry are preserved exactly.
func (t *Table) ScaleStrategy(factor float64) {
	t.Each(func(_ string, e *Entry) {
		e.scaleStrategy(factor)
	})
}

// Each invokes fn for every key/entry pair. The table must not grow during
// iteration; callers run it between training phases.
func (t *Table) Each(fn func(key string, e *Entry)) {
	t.mu.RLock()
	keys := t.keys
	entries := t.entries
	t.mu.RUnlock()
	for i, key := range keys {
		fn(key, entries[i])
	}
}

func fnv32(key string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	hash := uint32(offset32)
	for i := 0; i < len(key); i++ {
		hash ^= uint32(key[i])
		hash *= prime32
	}
	return hash
}
