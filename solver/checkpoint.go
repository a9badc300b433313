package solver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/internal/fileutil"
)

// checkpointFormatVersion is the current on-disk snapshot format. Version 1
// used the legacy slash-separated infoset keys; Migrate upgrades old files.
const checkpointFormatVersion = 2

// ErrIncompatibleCheckpoint means the checkpoint was produced under a
// different abstraction than the one the trainer is running: its regrets are
// indexed by buckets that no longer mean the same thing, so resuming would
// silently corrupt the blueprint.
var ErrIncompatibleCheckpoint = errors.New("checkpoint abstraction fingerprint mismatch")

// EntrySnapshot is the serialised form of one infoset entry.
type EntrySnapshot struct {
	Regret      []float64 `json:"regret"`
	StrategySum []float64 `json:"strategy_sum"`
	Normalising float64   `json:"normalising"`
}

// Snapshot is a complete training checkpoint: enough to resume a run
// mid-flight or to export the average policy without the trainer.
type Snapshot struct {
	FormatVersion int                      `json:"format_version"`
	RunID         string                   `json:"run_id"`
	BucketHash    string                   `json:"bucket_hash"`
	Iteration     int64                    `json:"iteration"`
	Training      TrainingConfig           `json:"training"`
	Abstraction   abstraction.Config       `json:"abstraction"`
	Entries       map[string]EntrySnapshot `json:"entries"`
	SavedAt       time.Time                `json:"saved_at"`
}

// fingerprintString renders the abstraction fingerprint for storage.
func fingerprintString(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// Snapshot captures the trainer's current state. Safe to call between
// iterations; not safe concurrently with a running iteration.
func (t *Trainer) Snapshot() *Snapshot {
	if t.cfg.Averaging == AverageExponential {
		// Fold the exponential scale into the table so a resumed run can
		// restart its weights from one.
		t.normalizeWeights(t.iteration.Load())
	}
	s := &Snapshot{
		FormatVersion: checkpointFormatVersion,
		RunID:         t.runID,
		BucketHash:    fingerprintString(t.mapper.Fingerprint()),
		Iteration:     t.iteration.Load(),
		Training:      t.cfg,
		Abstraction:   t.mapper.Config(),
		Entries:       make(map[string]EntrySnapshot, t.table.Size()),
		SavedAt:       time.Now().UTC(),
	}
	t.table.Each(func(key string, e *Entry) {
		s.Entries[key] = e.snapshot()
	})
	return s
}

// SaveCheckpoint writes the current state to path atomically: a crash during
// the write leaves the previous checkpoint intact.
func (t *Trainer) SaveCheckpoint(path string) error {
	return t.Snapshot().Save(path)
}

// Save writes the snapshot to path atomically.
func (s *Snapshot) Save(path string) error {
	if err := fileutil.WriteJSONAtomic(path, s, 0o644); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// LoadSnapshot reads a checkpoint file without validating it against any
// abstraction. Used by export and migration, which operate on the file as-is.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", path, err)
	}
	return &s, nil
}

// ResumeTrainer reconstructs a trainer from a checkpoint, validating that the
// snapshot was produced under the same abstraction as mapper. A version-1
// snapshot must be migrated before it can resume.
func ResumeTrainer(mapper *abstraction.Mapper, s *Snapshot, logger zerolog.Logger) (*Trainer, error) {
	if s.FormatVersion != checkpointFormatVersion {
		return nil, fmt.Errorf("checkpoint format version %d needs migration to %d", s.FormatVersion, checkpointFormatVersion)
	}
	if got := fingerprintString(mapper.Fingerprint()); got != s.BucketHash {
		return nil, fmt.Errorf("%w: checkpoint %s, abstraction %s", ErrIncompatibleCheckpoint, s.BucketHash, got)
	}

	t, err := NewTrainer(mapper, s.Training, logger)
	if err != nil {
		return nil, err
	}
	t.runID = s.RunID
	t.iteration.Store(s.Iteration)
	// Snapshots are saved with the exponential scale folded to one.
	t.weightBase = s.Iteration
	for key, es := range s.Entries {
		if len(es.Regret) != len(es.StrategySum) {
			return nil, fmt.Errorf("checkpoint entry %q has mismatched vector lengths", key)
		}
		if _, err := ParseKey(key); err != nil {
			return nil, fmt.Errorf("checkpoint entry: %w", err)
		}
		_, e, err := t.table.GetOrCreate(key, len(es.Regret))
		if err != nil {
			return nil, err
		}
		copy(e.Regret, es.Regret)
		copy(e.StrategySum, es.StrategySum)
		e.Normalising = es.Normalising
	}
	logger.Info().
		Str("run_id", s.RunID).
		Int64("iteration", s.Iteration).
		Int("infosets", len(s.Entries)).
		Msg("resumed from checkpoint")
	return t, nil
}
