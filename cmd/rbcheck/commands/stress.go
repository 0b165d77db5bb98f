package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ordtree/internal/config"
	"github.com/Sumatoshi-tech/ordtree/internal/observability"
	"github.com/Sumatoshi-tech/ordtree/internal/report"
	"github.com/Sumatoshi-tech/ordtree/internal/workload"
	"github.com/Sumatoshi-tech/ordtree/pkg/version"
)

const (
	stressCmdUse   = "stress"
	stressCmdShort = "Run a randomized workload and cross-check every answer"

	flagOps         = "ops"
	flagKeys        = "keys"
	flagSeed        = "seed"
	flagVerifyEvery = "verify-every"
	flagFormat      = "format"
	flagMetricsFile = "metrics-file"
	flagNodeLimit   = "node-limit"
	flagTimeout     = "timeout"

	logFormatJSON = "json"
)

// ErrMismatches is returned when a stress run disagrees with its references.
var ErrMismatches = errors.New("stress run found mismatches")

type stressFlags struct {
	stress config.StressConfig
}

// NewStressCommand creates the stress subcommand.
func NewStressCommand(globals *GlobalOptions) *cobra.Command {
	flags := &stressFlags{}

	cmd := &cobra.Command{
		Use:   stressCmdUse,
		Short: stressCmdShort,
		Long: `Run a seeded mix of insert, erase, find, lower_bound, upper_bound and
assign operations against the ordered set and map. Each answer is compared
with an independent B-tree, the tree invariants are verified periodically,
and a report is printed. The command fails when any mismatch is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStress(cmd, globals, flags)
		},
	}

	registerStressFlags(cmd, flags)

	return cmd
}

func registerStressFlags(cmd *cobra.Command, flags *stressFlags) {
	stress := &flags.stress

	cmd.Flags().IntVar(&stress.Ops, flagOps, config.DefaultOps, "number of operations")
	cmd.Flags().IntVar(&stress.Keys, flagKeys, config.DefaultKeys, "size of the key space")
	cmd.Flags().Int64Var(&stress.Seed, flagSeed, config.DefaultSeed, "random seed")
	cmd.Flags().IntVar(&stress.VerifyEvery, flagVerifyEvery, config.DefaultVerifyEvery,
		"verify invariants every N operations (0 verifies only at the end)")
	cmd.Flags().StringVar(&stress.Format, flagFormat, config.DefaultFormat, "report format: table or yaml")
	cmd.Flags().StringVar(&stress.MetricsFile, flagMetricsFile, "", "write Prometheus metrics to this textfile")
	cmd.Flags().IntVar(&stress.NodeLimit, flagNodeLimit, 0, "cap the set's node allocator (0 = unbounded)")
	cmd.Flags().DurationVar(&stress.Timeout, flagTimeout, config.DefaultTimeout, "abort the run after this long")
}

// applyStressFlags overlays explicitly set flags on the loaded configuration.
func applyStressFlags(cmd *cobra.Command, flags *stressFlags, cfg *config.StressConfig) {
	changed := cmd.Flags().Changed
	stress := flags.stress

	if changed(flagOps) {
		cfg.Ops = stress.Ops
	}

	if changed(flagKeys) {
		cfg.Keys = stress.Keys
	}

	if changed(flagSeed) {
		cfg.Seed = stress.Seed
	}

	if changed(flagVerifyEvery) {
		cfg.VerifyEvery = stress.VerifyEvery
	}

	if changed(flagFormat) {
		cfg.Format = stress.Format
	}

	if changed(flagMetricsFile) {
		cfg.MetricsFile = stress.MetricsFile
	}

	if changed(flagNodeLimit) {
		cfg.NodeLimit = stress.NodeLimit
	}

	if changed(flagTimeout) {
		cfg.Timeout = stress.Timeout
	}
}

func buildStressConfig(cmd *cobra.Command, globals *GlobalOptions, flags *stressFlags) (*config.Config, error) {
	cfg, err := config.LoadConfig(globals.ConfigPath)
	if err != nil {
		return nil, err
	}

	applyStressFlags(cmd, flags, &cfg.Stress)

	switch {
	case globals.Verbose:
		cfg.Logging.Level = slog.LevelDebug.String()
	case globals.Quiet:
		cfg.Logging.Level = slog.LevelError.String()
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	return cfg, nil
}

func observabilityConfig(cfg *config.Config) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceName = cfg.Telemetry.ServiceName
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogLevel = observability.ParseLogLevel(cfg.Logging.Level)
	obsCfg.LogJSON = cfg.Logging.Format == logFormatJSON

	return obsCfg
}

func runStress(cmd *cobra.Command, globals *GlobalOptions, flags *stressFlags) error {
	cfg, err := buildStressConfig(cmd, globals, flags)
	if err != nil {
		return err
	}

	providers, err := observability.Init(observabilityConfig(cfg), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	metrics, err := observability.NewWorkloadMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	ctx := cmd.Context()

	if cfg.Stress.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, cfg.Stress.Timeout)
		defer cancel()
	}

	runner := workload.NewRunner(workload.Options{
		Ops:         cfg.Stress.Ops,
		Keys:        cfg.Stress.Keys,
		Seed:        cfg.Stress.Seed,
		VerifyEvery: cfg.Stress.VerifyEvery,
		NodeLimit:   cfg.Stress.NodeLimit,
	},
		workload.WithLogger(providers.Logger),
		workload.WithTracer(providers.Tracer),
		workload.WithMetrics(metrics),
	)

	rep, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("stress run: %w", err)
	}

	if !globals.Quiet {
		err = report.Render(cmd.OutOrStdout(), rep, cfg.Stress.Format)
		if err != nil {
			return err
		}
	}

	if cfg.Stress.MetricsFile != "" {
		err = observability.WriteTextfile(providers.Registry, cfg.Stress.MetricsFile)
		if err != nil {
			return err
		}
	}

	if !rep.Passed() {
		return fmt.Errorf("%w: %d (seed %d)", ErrMismatches, len(rep.Mismatches), rep.Seed)
	}

	return nil
}
