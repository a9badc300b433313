package solver

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pokerforge/pokerforge/internal/fileutil"
)

// Policy is the exported blueprint: the normalised average strategy per
// infoset, stripped of regrets and accumulators. This is the artifact the
// online resolver loads.
type Policy struct {
	RunID       string               `json:"run_id"`
	Iterations  int64                `json:"iterations"`
	BucketHash  string               `json:"bucket_hash"`
	GeneratedAt time.Time            `json:"generated_at"`
	Strategies  map[string][]float64 `json:"strategies"`
}

// Policy exports the trainer's current average strategy.
func (t *Trainer) Policy() *Policy {
	p := &Policy{
		RunID:       t.runID,
		Iterations:  t.iteration.Load(),
		BucketHash:  fingerprintString(t.mapper.Fingerprint()),
		GeneratedAt: time.Now().UTC(),
		Strategies:  make(map[string][]float64, t.table.Size()),
	}
	t.table.Each(func(key string, e *Entry) {
		p.Strategies[key] = e.AverageStrategy()
	})
	return p
}

// PolicyFromSnapshot exports the average strategy of a checkpoint without
// reconstructing a trainer.
func PolicyFromSnapshot(s *Snapshot) (*Policy, error) {
	if s.FormatVersion != checkpointFormatVersion {
		return nil, fmt.Errorf("checkpoint format version %d needs migration to %d", s.FormatVersion, checkpointFormatVersion)
	}
	p := &Policy{
		RunID:       s.RunID,
		Iterations:  s.Iteration,
		BucketHash:  s.BucketHash,
		GeneratedAt: time.Now().UTC(),
		Strategies:  make(map[string][]float64, len(s.Entries)),
	}
	for key, es := range s.Entries {
		e := Entry{StrategySum: es.StrategySum, Normalising: es.Normalising, Regret: es.Regret}
		p.Strategies[key] = e.AverageStrategy()
	}
	return p, nil
}

// Save writes the policy to path atomically.
func (p *Policy) Save(path string) error {
	if err := fileutil.WriteJSONAtomic(path, p, 0o644); err != nil {
		return fmt.Errorf("saving policy: %w", err)
	}
	return nil
}

// LoadPolicy reads an exported policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding policy %s: %w", path, err)
	}
	return &p, nil
}

// Strategy returns the stored distribution for a key.
func (p *Policy) Strategy(key InfosetKey) ([]float64, bool) {
	s, ok := p.Strategies[key.String()]
	return s, ok
}

// ActionProbs returns the distribution for a key, falling back to uniform
// over actions for infosets training never reached.
func (p *Policy) ActionProbs(key InfosetKey, actions int) []float64 {
	if s, ok := p.Strategies[key.String()]; ok && len(s) == actions {
		return s
	}
	uniform := make([]float64, actions)
	for i := range uniform {
		uniform[i] = 1.0 / float64(actions)
	}
	return uniform
}
