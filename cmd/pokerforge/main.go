package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/internal/config"
	"github.com/pokerforge/pokerforge/poker"
	"github.com/pokerforge/pokerforge/resolver"
	"github.com/pokerforge/pokerforge/solver"
)

var cli struct {
	Debug  bool   `help:"enable debug logging"`
	Config string `help:"path to HCL profile" type:"path"`

	Train     TrainCmd     `cmd:"" help:"run blueprint training and export the average policy"`
	Export    ExportCmd    `cmd:"" help:"export the average policy from a checkpoint"`
	Migrate   MigrateCmd   `cmd:"" help:"upgrade a checkpoint to the current format"`
	Resolve   ResolveCmd   `cmd:"" help:"re-solve a single decision against a policy"`
	Partition PartitionCmd `cmd:"" help:"print iteration ranges for parallel training instances"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("pokerforge"),
		kong.Description("Blueprint solver and subgame resolver for no-limit hold'em bots"),
		kong.UsageOnError(),
	)

	setupLogger(cli.Debug)

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch ctx.Command() {
	case "train":
		err = cli.Train.Run(runCtx)
	case "export":
		err = cli.Export.Run(runCtx)
	case "migrate":
		err = cli.Migrate.Run(runCtx)
	case "resolve":
		err = cli.Resolve.Run(runCtx)
	case "partition":
		err = cli.Partition.Run(runCtx)
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", ctx.Command()).Msg("command failed")
	}
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

func loadProfile() (*config.Profile, error) {
	return config.Load(cli.Config)
}

// TrainCmd runs blueprint training from scratch or from a checkpoint.
type TrainCmd struct {
	Out             string `help:"path to write the exported policy" required:""`
	Iterations      int    `help:"iteration count (overrides profile)" default:"0"`
	Seed            int64  `help:"random seed (overrides profile)" default:"0"`
	Workers         int    `help:"worker tables per iteration (overrides profile)" default:"0"`
	Smoke           bool   `help:"apply the smoke preset abstraction for quick runs"`
	ResumeFrom      string `help:"resume from a checkpoint file"`
	CheckpointPath  string `help:"write periodic checkpoints here"`
	CheckpointEvery int    `help:"checkpoint interval in iterations (0 disables)" default:"0"`
	Instance        int    `help:"this instance's index when splitting a run" default:"0"`
	Instances       int    `help:"total instances splitting the run" default:"1"`
	CPUProfile      string `help:"write a CPU profile to file"`
}

func (cmd *TrainCmd) Run(ctx context.Context) error {
	profile, err := loadProfile()
	if err != nil {
		return err
	}

	if cmd.CPUProfile != "" {
		f, err := os.Create(cmd.CPUProfile)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", cmd.CPUProfile).Msg("CPU profiling enabled")
	}

	absCfg, err := profile.AbstractionConfig()
	if err != nil {
		return err
	}
	if cmd.Smoke {
		absCfg = abstraction.Smoke()
		log.Info().Msg("applying smoke preset abstraction")
	}
	mapper, err := abstraction.NewMapper(absCfg)
	if err != nil {
		return err
	}

	var trainer *solver.Trainer
	if cmd.ResumeFrom != "" {
		snap, err := solver.LoadSnapshot(cmd.ResumeFrom)
		if err != nil {
			return err
		}
		trainer, err = solver.ResumeTrainer(mapper, snap, log.Logger)
		if err != nil {
			return err
		}
		if cmd.Iterations > 0 {
			if err := trainer.SetTotalIterations(cmd.Iterations); err != nil {
				return err
			}
		}
	} else {
		trainCfg, err := profile.TrainingConfig()
		if err != nil {
			return err
		}
		if cmd.Iterations > 0 {
			trainCfg.Iterations = cmd.Iterations
		}
		if cmd.Seed != 0 {
			trainCfg.Seed = cmd.Seed
		}
		if cmd.Workers > 0 {
			trainCfg.Workers = cmd.Workers
		}
		if cmd.CheckpointPath != "" {
			trainCfg.CheckpointPath = cmd.CheckpointPath
			trainCfg.CheckpointEvery = cmd.CheckpointEvery
		}
		trainer, err = solver.NewTrainer(mapper, trainCfg, log.Logger)
		if err != nil {
			return err
		}
	}

	cfg := trainer.TrainingConfig()
	log.Info().
		Int("iterations", cfg.Iterations).
		Int("players", cfg.Players).
		Int("workers", cfg.Workers).
		Bool("cfr_plus", cfg.CFRPlus).
		Stringer("averaging", cfg.Averaging).
		Str("run_id", trainer.RunID()).
		Msg("starting training run")

	start := time.Now()
	progress := func(p solver.Progress) {
		log.Info().
			Int("iteration", p.Iteration).
			Int("infosets", p.Infosets).
			Int64("nodes", p.Stats.NodesVisited).
			Int64("terminals", p.Stats.TerminalNodes).
			Int("max_depth", p.Stats.MaxDepth).
			Dur("iter_time", p.Stats.IterationTime).
			Msg("progress")
	}

	if cmd.Instances > 1 {
		ranges, err := solver.Partition(cfg.Iterations, cmd.Instances)
		if err != nil {
			return err
		}
		if cmd.Instance < 0 || cmd.Instance >= cmd.Instances {
			return fmt.Errorf("instance %d outside [0,%d)", cmd.Instance, cmd.Instances)
		}
		r := ranges[cmd.Instance]
		log.Info().Int("start", r.Start).Int("end", r.End()).Msg("running partition slice")
		if err := trainer.RunRange(ctx, r, progress); err != nil {
			return err
		}
	} else if err := trainer.Run(ctx, progress); err != nil {
		return err
	}

	policy := trainer.Policy()
	log.Info().
		Dur("duration", time.Since(start)).
		Int("infosets", len(policy.Strategies)).
		Msg("training completed")

	if err := policy.Save(cmd.Out); err != nil {
		return err
	}
	log.Info().Str("path", cmd.Out).Msg("policy saved")
	return nil
}

// ExportCmd turns a checkpoint into a policy without resuming training.
type ExportCmd struct {
	Checkpoint string `help:"path to the checkpoint file" required:""`
	Out        string `help:"path to write the exported policy" required:""`
}

func (cmd *ExportCmd) Run(ctx context.Context) error {
	snap, err := solver.LoadSnapshot(cmd.Checkpoint)
	if err != nil {
		return err
	}
	policy, err := solver.PolicyFromSnapshot(snap)
	if err != nil {
		return err
	}
	if err := policy.Save(cmd.Out); err != nil {
		return err
	}
	log.Info().
		Str("run_id", policy.RunID).
		Int64("iterations", policy.Iterations).
		Int("infosets", len(policy.Strategies)).
		Str("path", cmd.Out).
		Msg("policy exported")
	return nil
}

// MigrateCmd upgrades an old checkpoint file in place or to a new path.
type MigrateCmd struct {
	In  string `help:"checkpoint to migrate" required:""`
	Out string `help:"output path (defaults to in-place)"`
}

func (cmd *MigrateCmd) Run(ctx context.Context) error {
	snap, err := solver.LoadSnapshot(cmd.In)
	if err != nil {
		return err
	}
	before := snap.FormatVersion
	if err := solver.Migrate(snap); err != nil {
		return err
	}
	out := cmd.Out
	if out == "" {
		out = cmd.In
	}
	if err := snap.Save(out); err != nil {
		return err
	}
	log.Info().
		Int("from_version", before).
		Int("to_version", snap.FormatVersion).
		Int("infosets", len(snap.Entries)).
		Str("path", out).
		Msg("checkpoint migrated")
	return nil
}

// ResolveCmd answers one decision point from the command line, mostly for
// inspecting what the resolver would do in a given spot.
type ResolveCmd struct {
	Policy     string `help:"path to the exported policy" required:""`
	Hole       string `help:"hero hole cards, e.g. 'As Kh'" required:""`
	Board      string `help:"board cards, e.g. 'Qd Jc 7s'"`
	History    string `help:"dot-separated action tokens since the hand start, e.g. 'c.r100.n.c'"`
	HeroSeat   int    `help:"hero seat (0 or 1)" default:"0"`
	Button     int    `help:"button seat (0 or 1)" default:"0"`
	SmallBlind int    `help:"small blind" default:"5"`
	BigBlind   int    `help:"big blind" default:"10"`
	Stack      int    `help:"starting stack" default:"1000"`
}

func (cmd *ResolveCmd) Run(ctx context.Context) error {
	profile, err := loadProfile()
	if err != nil {
		return err
	}
	absCfg, err := profile.AbstractionConfig()
	if err != nil {
		return err
	}
	mapper, err := abstraction.NewMapper(absCfg)
	if err != nil {
		return err
	}
	searchCfg, err := profile.SearchConfig()
	if err != nil {
		return err
	}

	policy, err := solver.LoadPolicy(cmd.Policy)
	if err != nil {
		return err
	}
	r, err := resolver.New(policy, mapper, searchCfg, log.Logger)
	if err != nil {
		return err
	}

	hole, err := poker.ParseHand(cmd.Hole)
	if err != nil {
		return err
	}
	board, err := poker.ParseHand(cmd.Board)
	if err != nil {
		return err
	}
	history, street := encodeHistory(cmd.History)

	decision, err := r.Resolve(ctx, resolver.Request{
		Players:       2,
		Street:        street,
		HeroSeat:      cmd.HeroSeat,
		Button:        cmd.Button,
		HeroHole:      hole,
		Board:         board,
		History:       history,
		SmallBlind:    cmd.SmallBlind,
		BigBlind:      cmd.BigBlind,
		StartingStack: cmd.Stack,
	})
	if err != nil {
		return err
	}

	fmt.Printf("action: %s (%s)\n", decision.Action, decision.Source)
	for i, a := range decision.Archetypes {
		fmt.Printf("  %-6s %.3f\n", a.Token(), decision.Probs[i])
	}
	return nil
}

// encodeHistory converts dot-separated CLI tokens into the fixed-width
// encoding and counts street breaks to find the current street.
func encodeHistory(dotted string) (string, abstraction.Street) {
	street := abstraction.Preflop
	if dotted == "" {
		return "", street
	}
	var sb strings.Builder
	for _, tok := range strings.Split(dotted, ".") {
		if tok == "" {
			continue
		}
		if tok == solver.StreetBreak {
			street++
		}
		sb.WriteString(solver.PadToken(tok))
	}
	return sb.String(), street
}

// PartitionCmd prints the iteration split for N independent instances.
type PartitionCmd struct {
	Iterations int `help:"total iterations" required:""`
	Instances  int `help:"number of instances" required:""`
}

func (cmd *PartitionCmd) Run(ctx context.Context) error {
	ranges, err := solver.Partition(cmd.Iterations, cmd.Instances)
	if err != nil {
		return err
	}
	for i, r := range ranges {
		fmt.Printf("instance %d: iterations [%d,%d) count %d\n", i, r.Start, r.End(), r.Count)
	}
	return nil
}
