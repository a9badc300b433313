package solver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/internal/randutil"
	"github.com/pokerforge/pokerforge/translate"
)

// TraversalStats captures instrumentation for one MCCFR iteration.
type TraversalStats struct {
	NodesVisited  int64         `json:"nodes_visited"`
	TerminalNodes int64         `json:"terminal_nodes"`
	MaxDepth      int           `json:"max_depth"`
	IterationTime time.Duration `json:"iteration_time"`
}

func (s *TraversalStats) merge(other TraversalStats) {
	s.NodesVisited += other.NodesVisited
	s.TerminalNodes += other.TerminalNodes
	if other.MaxDepth > s.MaxDepth {
		s.MaxDepth = other.MaxDepth
	}
}

// Progress is emitted periodically during long training runs.
type Progress struct {
	Iteration int
	Infosets  int
	Stats     TraversalStats
}

// Trainer runs external-sampling Monte Carlo CFR over the abstracted game,
// accumulating regrets and strategy weights in a shared Table.
type Trainer struct {
	mapper     *abstraction.Mapper
	cfg        TrainingConfig
	translator *translate.Translator
	table      *Table
	iteration  atomic.Int64
	endAt      int
	weightBase int64
	runID      string
	logger     zerolog.Logger

	statsMu sync.Mutex
	stats   TraversalStats
}

// NewTrainer constructs a trainer for the abstraction and training configs.
func NewTrainer(mapper *abstraction.Mapper, cfg TrainingConfig, logger zerolog.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Trainer{
		mapper:     mapper,
		cfg:        cfg,
		translator: translate.New(mapper.Config()),
		table:      NewTable(),
		endAt:      cfg.Iterations,
		runID:      uuid.NewString(),
		logger:     logger,
	}, nil
}

// Run executes iterations from the current position up to the configured
// total, checkpointing periodically when configured.
func (t *Trainer) Run(ctx context.Context, progress func(Progress)) error {
	batch := t.cfg.ProgressEvery
	if batch <= 0 {
		batch = t.cfg.Iterations / 100
		if batch == 0 {
			batch = 1
		}
	}

	for i := int(t.iteration.Load()); i < t.endAt; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := time.Now()
		stats, err := t.runIteration(i)
		if err != nil {
			return err
		}
		stats.IterationTime = time.Since(start)
		t.setStats(stats)
		iter := int(t.iteration.Add(1))
		t.maybeRescaleWeights(int64(iter))

		if t.cfg.CheckpointPath != "" && t.cfg.CheckpointEvery > 0 && iter%t.cfg.CheckpointEvery == 0 {
			if err := t.SaveCheckpoint(t.cfg.CheckpointPath); err != nil {
				return err
			}
			t.logger.Debug().Int("iteration", iter).Str("path", t.cfg.CheckpointPath).Msg("checkpoint written")
		}
		if progress != nil && iter%batch == 0 {
			progress(Progress{Iteration: iter, Infosets: t.table.Size(), Stats: stats})
		}
	}

	if t.cfg.CheckpointPath != "" && t.cfg.CheckpointEvery > 0 {
		if err := t.SaveCheckpoint(t.cfg.CheckpointPath); err != nil {
			return err
		}
	}
	if progress != nil {
		progress(Progress{Iteration: int(t.iteration.Load()), Infosets: t.table.Size(), Stats: t.Stats()})
	}
	return nil
}

// RunRange executes exactly the iterations in r. Used by independent
// instances that each own a disjoint slice of a larger run; the iteration
// index seeds every RNG stream, so two instances never replay each other's
// sampling.
func (t *Trainer) RunRange(ctx context.Context, r IterationRange, progress func(Progress)) error {
	t.iteration.Store(int64(r.Start))
	t.endAt = r.End()
	return t.Run(ctx, progress)
}

// runIteration performs one sampled traversal per seat for each worker.
func (t *Trainer) runIteration(iter int) (TraversalStats, error) {
	weight := t.iterationWeight(int64(iter) + 1)
	statsSlice := make([]TraversalStats, t.cfg.Workers)

	var g errgroup.Group
	for w := 0; w < t.cfg.Workers; w++ {
		g.Go(func() error {
			tc := &traversalCtx{
				rng:    randutil.Stream(t.cfg.Seed, iter*t.cfg.Workers+w),
				stats:  &statsSlice[w],
				weight: weight,
			}
			button := tc.rng.IntN(t.cfg.Players)
			for target := 0; target < t.cfg.Players; target++ {
				if err := t.traverseHand(tc, button, target); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TraversalStats{}, err
	}

	var agg TraversalStats
	for i := range statsSlice {
		agg.merge(statsSlice[i])
	}
	return agg, nil
}

// weightRescaleLimit bounds how large an exponential averaging weight may
// grow before the accumulated mass is folded back to scale one. Averaging
// is scale-invariant per entry, so the fold changes only float magnitudes,
// never the resulting strategies.
const weightRescaleLimit = 1e12

// iterationWeight returns the averaging weight for the given 1-based
// iteration, relative to the current rescale base.
func (t *Trainer) iterationWeight(iter int64) float64 {
	if t.cfg.Averaging == AverageExponential {
		return t.cfg.iterationWeight(iter - t.weightBase)
	}
	return t.cfg.iterationWeight(iter)
}

// maybeRescaleWeights keeps exponential weights finite on long runs: once
// the relative weight passes the limit, the accumulated strategy mass is
// scaled down and the base moves to the current iteration. Called between
// iterations, never concurrently with traversal workers.
func (t *Trainer) maybeRescaleWeights(done int64) {
	if t.cfg.Averaging != AverageExponential {
		return
	}
	if t.cfg.iterationWeight(done-t.weightBase) < weightRescaleLimit {
		return
	}
	t.normalizeWeights(done)
}

// normalizeWeights folds the exponential scale accumulated since the last
// base into the table, so the next iteration's weight restarts near one.
func (t *Trainer) normalizeWeights(done int64) {
	if done == t.weightBase {
		return
	}
	t.table.ScaleStrategy(1 / t.cfg.iterationWeight(done-t.weightBase))
	t.weightBase = done
}

func (t *Trainer) setStats(stats TraversalStats) {
	t.statsMu.Lock()
	t.stats = stats
	t.statsMu.Unlock()
}

// Stats returns the most recent iteration's traversal statistics.
func (t *Trainer) Stats() TraversalStats {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return t.stats
}

// Iteration returns the number of completed iterations.
func (t *Trainer) Iteration() int64 {
	return t.iteration.Load()
}

// TrainingConfig returns the trainer's configuration.
func (t *Trainer) TrainingConfig() TrainingConfig {
	return t.cfg
}

// Table exposes the information-set store for export and inspection.
func (t *Trainer) Table() *Table {
	return t.table
}

// RunID identifies this training run in checkpoints and exports.
func (t *Trainer) RunID() string {
	return t.runID
}

// SetTotalIterations extends or shortens the run target, e.g. after resuming
// a checkpoint with a new --iterations flag.
func (t *Trainer) SetTotalIterations(n int) error {
	if current := int(t.iteration.Load()); n < current {
		return errAlreadyPast(current, n)
	}
	t.cfg.Iterations = n
	t.endAt = n
	return nil
}

func errAlreadyPast(current, requested int) error {
	return fmt.Errorf("requested total %d is below completed iterations %d", requested, current)
}
