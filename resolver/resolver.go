package resolver

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/internal/randutil"
	"github.com/pokerforge/pokerforge/poker"
	"github.com/pokerforge/pokerforge/solver"
	"github.com/pokerforge/pokerforge/translate"
)

// State tracks where a solve is in its lifecycle.
type State uint8

const (
	StateIdle State = iota
	StateBuilding
	StateSolving
	StateDone
	StateTimeout
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateSolving:
		return "solving"
	case StateDone:
		return "done"
	case StateTimeout:
		return "timeout"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Source records which policy produced a decision.
type Source uint8

const (
	// SourceResolved means the subgame solve finished its minimum work and
	// the decision comes from the re-solved strategy.
	SourceResolved Source = iota
	// SourceBlueprint means the resolver fell back to the offline policy:
	// the budget ran out early, the pot is multiway, or the solve failed.
	SourceBlueprint
)

func (s Source) String() string {
	if s == SourceBlueprint {
		return "blueprint"
	}
	return "resolved"
}

// Request describes one decision point. History is the fixed-width archetype
// token string since the start of the hand, in the same encoding the
// blueprint keys use; observed off-tree bets must already be classified
// through the translator's reverse mapping.
type Request struct {
	Players  int
	Street   abstraction.Street
	HeroSeat int
	Button   int
	HeroHole poker.Hand
	Board    poker.Hand
	History  string

	SmallBlind    int
	BigBlind      int
	StartingStack int

	// Constraints supplies the live legality envelope for multiway pots,
	// where the resolver cannot reconstruct it from a two-seat replay. It is
	// ignored heads up.
	Constraints *translate.Constraints
}

// Decision is the resolver's answer.
type Decision struct {
	Action     translate.Concrete
	Probs      []float64
	Archetypes []abstraction.Archetype
	Source     Source
	State      State
	Iterations int
	Nodes      int
	Elapsed    time.Duration
}

// Resolver re-solves depth-limited subgames against a blueprint policy.
// Safe for sequential reuse; one Resolve runs at a time.
type Resolver struct {
	policy     *solver.Policy
	mapper     *abstraction.Mapper
	translator *translate.Translator
	estimator  *RangeEstimator
	cfg        SearchConfig
	clock      quartz.Clock
	logger     zerolog.Logger
	solves     atomic.Int64
	state      atomic.Int32
}

// Option adjusts resolver construction.
type Option func(*Resolver)

// WithClock substitutes the wall clock, letting tests drive the deadline.
func WithClock(c quartz.Clock) Option {
	return func(r *Resolver) { r.clock = c }
}

// New builds a resolver over an exported blueprint. The policy must have
// been trained under the same abstraction as mapper.
func New(policy *solver.Policy, mapper *abstraction.Mapper, cfg SearchConfig, logger zerolog.Logger, opts ...Option) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if want := fmt.Sprintf("%016x", mapper.Fingerprint()); policy.BucketHash != want {
		return nil, fmt.Errorf("policy abstraction fingerprint %s does not match %s", policy.BucketHash, want)
	}
	r := &Resolver{
		policy:     policy,
		mapper:     mapper,
		translator: translate.New(mapper.Config()),
		estimator:  NewRangeEstimator(policy, mapper),
		cfg:        cfg,
		clock:      quartz.NewReal(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	// Rough floor of 100 solver iterations per millisecond.
	if cfg.TimeBudget < time.Millisecond*time.Duration(cfg.MinIterations)/100 {
		logger.Warn().
			Dur("budget", cfg.TimeBudget).
			Int("min_iterations", cfg.MinIterations).
			Msg("time budget is unlikely to reach the iteration floor; expect blueprint fallbacks")
	}
	return r, nil
}

// State returns the lifecycle state of the most recent solve.
func (r *Resolver) State() State {
	return State(r.state.Load())
}

func (r *Resolver) setState(s State) {
	r.state.Store(int32(s))
}

// Resolve produces a decision for the request within the street's time
// budget. It never blocks past the deadline: if the subgame cannot be solved
// to the configured minimum it answers from the blueprint instead.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Decision, error) {
	seq := r.solves.Add(1)
	started := r.clock.Now()
	deadline := started.Add(r.cfg.budgetFor(int(req.Street)))
	rng := randutil.Stream(r.cfg.Seed, int(seq))
	log := r.logger.With().Int64("solve", seq).Stringer("street", req.Street).Logger()

	r.setState(StateBuilding)
	d, err := r.resolve(ctx, req, deadline, rng, log)
	d.Elapsed = r.clock.Now().Sub(started)
	d.State = r.State()
	if err != nil {
		r.setState(StateFailed)
		d.State = StateFailed
		log.Error().Err(err).Msg("solve failed")
		return d, err
	}
	log.Info().
		Stringer("source", d.Source).
		Stringer("state", d.State).
		Int("iterations", d.Iterations).
		Int("nodes", d.Nodes).
		Dur("elapsed", d.Elapsed).
		Stringer("action", d.Action).
		Msg("decision")
	return d, nil
}

func (r *Resolver) resolve(ctx context.Context, req Request, deadline time.Time, rng *rand.Rand, log zerolog.Logger) (Decision, error) {
	if err := r.validateRequest(req); err != nil {
		return Decision{}, err
	}
	if req.Players > 2 {
		// Subgames are two-seat; multiway decisions come straight from the
		// blueprint.
		log.Debug().Int("players", req.Players).Msg("multiway pot, using blueprint")
		return r.blueprintMultiway(req, rng)
	}

	root, err := replayHistory(req.History, r.mapper.Config(), r.translator, req.SmallBlind, req.BigBlind, req.StartingStack, req.Button)
	if err != nil {
		return Decision{}, err
	}
	if root.street != req.Street {
		return Decision{}, fmt.Errorf("history ends on %s, request says %s", root.street, req.Street)
	}
	if root.actor != req.HeroSeat {
		return Decision{}, fmt.Errorf("history puts seat %d on the move, not hero seat %d", root.actor, req.HeroSeat)
	}

	heroBucket := r.mapper.Bucket(req.Street, req.HeroHole, req.Board)
	ranges, err := r.estimateRanges(req)
	if errors.Is(err, ErrInsufficientRange) {
		// The observed line has no support in the blueprint. Solving against
		// an invented posterior would dress up a guess as a re-solve, so the
		// decision comes straight from the blueprint instead.
		log.Warn().Msg("betting line outside blueprint support, using blueprint")
		r.setState(StateDone)
		return r.blueprintDecision(root, req.History, heroBucket, rng)
	}
	if err != nil {
		return Decision{}, err
	}

	sg, err := buildSubgame(root, r.mapper.Config(), r.translator)
	if err != nil {
		return Decision{}, err
	}

	// Hidden future cards are handled by sampling board continuations: each
	// solver prices the same subgame's leaves under one independently drawn
	// completion set, iterations round-robin across them, and the root
	// strategies are averaged at the end.
	solvers := make([]*subgameSolver, r.cfg.samplesFor(req.Street))
	for k := range solvers {
		leaf, err := r.buildLeafTable(ctx, req.Street, rng)
		if err != nil {
			return Decision{}, err
		}
		solvers[k] = newSubgameSolver(sg, leaf, ranges, rng)
	}

	r.setState(StateSolving)
	iterations := 0
	for iterations < r.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}
		if !r.clock.Now().Before(deadline) {
			break
		}
		solvers[iterations%len(solvers)].iterate()
		iterations++
	}

	if iterations < r.cfg.MinIterations {
		// Not enough work to trust the re-solve.
		r.setState(StateTimeout)
		log.Warn().Int("iterations", iterations).Int("min", r.cfg.MinIterations).Msg("budget exhausted, using blueprint")
		d, err := r.blueprintDecision(root, req.History, heroBucket, rng)
		if err != nil {
			return Decision{}, err
		}
		d.Iterations = iterations
		d.Nodes = sg.size()
		return d, nil
	}

	probs := averageRootStrategy(solvers, heroBucket)
	moves := sg.nodes[0].moves
	pick := sampleDist(rng, probs)
	r.setState(StateDone)
	return Decision{
		Action:     moves[pick].concrete,
		Probs:      probs,
		Archetypes: moveArchetypes(moves),
		Source:     SourceResolved,
		Iterations: iterations,
		Nodes:      sg.size(),
	}, nil
}

func (r *Resolver) validateRequest(req Request) error {
	if req.Players < 2 {
		return fmt.Errorf("players must be >= 2, got %d", req.Players)
	}
	if req.Street > abstraction.River {
		return fmt.Errorf("invalid street %d", req.Street)
	}
	if req.SmallBlind <= 0 || req.BigBlind <= req.SmallBlind || req.StartingStack <= req.BigBlind {
		return errors.New("invalid blind or stack sizes")
	}
	if req.Players == 2 && (req.HeroSeat < 0 || req.HeroSeat > 1 || req.Button < 0 || req.Button > 1) {
		return errors.New("heads-up seats must be 0 or 1")
	}
	return nil
}

// estimateRanges produces both seats' bucket distributions: the villain's
// for the opponent model, the hero's so the villain's counter-strategy is
// solved against the hero's whole arrival range. ErrInsufficientRange
// propagates so the caller can fall back to the blueprint.
func (r *Resolver) estimateRanges(req Request) ([2]Range, error) {
	var ranges [2]Range
	for seat := 0; seat < 2; seat++ {
		rg, err := r.estimator.Estimate(req.History, seat, req.Button, req.SmallBlind, req.BigBlind, req.StartingStack)
		if err != nil {
			return ranges, fmt.Errorf("seat %d: %w", seat, err)
		}
		ranges[seat] = rg
	}
	return ranges, nil
}

func (r *Resolver) buildLeafTable(ctx context.Context, street abstraction.Street, rng *rand.Rand) (*LeafTable, error) {
	if r.cfg.LeafMode == LeafRollout {
		return newRolloutLeafTable(ctx, r.mapper, street, r.cfg.SamplesPerBucket, r.cfg.Workers, rng.Int64())
	}
	return newAnalyticLeafTable(r.mapper, street)
}

// blueprintDecision answers from the offline policy at the hero's infoset.
func (r *Resolver) blueprintDecision(root betState, history string, heroBucket int, rng *rand.Rand) (Decision, error) {
	moves := legalMoves(&root, r.mapper.Config(), r.translator)
	if len(moves) == 0 {
		return Decision{}, errors.New("no legal actions at decision point")
	}
	key := solver.InfosetKey{Street: root.street, Bucket: heroBucket, History: history}
	probs := r.policy.ActionProbs(key, len(moves))
	pick := sampleDist(rng, probs)
	return Decision{
		Action:     moves[pick].concrete,
		Probs:      probs,
		Archetypes: moveArchetypes(moves),
		Source:     SourceBlueprint,
	}, nil
}

// blueprintMultiway answers a multiway decision from the blueprint using the
// caller-supplied legality envelope.
func (r *Resolver) blueprintMultiway(req Request, rng *rand.Rand) (Decision, error) {
	if req.Constraints == nil {
		return Decision{}, errors.New("multiway request needs table constraints")
	}
	cons := *req.Constraints
	canRaise := cons.MaxRaiseTo > cons.CurrentBet
	archetypes := r.mapper.Config().Actions(req.Street, cons.ToCall > 0, canRaise)

	moves := make([]subgameMove, 0, len(archetypes))
	for _, a := range archetypes {
		c, err := r.translator.ToConcrete(a, cons)
		if err != nil {
			continue
		}
		dup := false
		for _, m := range moves {
			if m.concrete.Kind == c.Kind && m.concrete.Amount == c.Amount {
				dup = true
				break
			}
		}
		if !dup {
			moves = append(moves, subgameMove{archetype: a, concrete: c})
		}
	}
	if len(moves) == 0 {
		return Decision{}, errors.New("no legal actions at decision point")
	}

	heroBucket := r.mapper.Bucket(req.Street, req.HeroHole, req.Board)
	key := solver.InfosetKey{Street: req.Street, Bucket: heroBucket, History: req.History}
	probs := r.policy.ActionProbs(key, len(moves))
	pick := sampleDist(rng, probs)
	r.setState(StateDone)
	return Decision{
		Action:     moves[pick].concrete,
		Probs:      probs,
		Archetypes: moveArchetypes(moves),
		Source:     SourceBlueprint,
	}, nil
}

func moveArchetypes(moves []subgameMove) []abstraction.Archetype {
	out := make([]abstraction.Archetype, len(moves))
	for i, m := range moves {
		out[i] = m.archetype
	}
	return out
}
