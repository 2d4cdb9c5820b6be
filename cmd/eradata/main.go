package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"eradata/internal/aggregate"
	"eradata/internal/config"
	"eradata/internal/normalize"
	"eradata/internal/pipeline"
)

// cliState is shared by the subcommands of one invocation
type cliState struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:   "eradata",
		Short: "Refine election results CSV files",
		Long: `eradata cleans county-level election results.

normalize  coerces year, county_fips and the vote columns to integers and
           rewrites the file quoting every non-numeric field.
aggregate  merges records that differ only by vote-counting mode into one
           TOTAL row per candidate, summing candidate votes.
serve      exposes published aggregate results over HTTP.

Settings are read from eradata.yaml; init-config writes one with the defaults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zcfg := zap.NewProductionConfig()
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if st.verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			st.logger = logger

			cfg, err := config.Load(st.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			st.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if st.logger != nil {
				_ = st.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&st.configPath, "config", "", "Config file (default: ./"+config.DefaultConfigFile+")")
	root.PersistentFlags().BoolVarP(&st.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newNormalizeCmd(st),
		newAggregateCmd(st),
		newServeCmd(st),
		newInitConfigCmd(st),
	)
	return root
}

// manager registers both refinement jobs as currently configured
func (st *cliState) manager(out io.Writer, publisher aggregate.Publisher) *pipeline.Manager {
	n := st.cfg.Normalize
	a := st.cfg.Aggregate
	return pipeline.NewManager(st.logger,
		normalize.New(normalize.Options{
			BaseDir: n.BaseDir,
			Input:   n.Input,
			Output:  n.Output,
		}, out, st.logger),
		aggregate.New(aggregate.Options{
			Input:       a.Input,
			Output:      a.Output,
			PreviewRows: a.PreviewRows,
			Strict:      a.Strict,
		}, out, st.logger, publisher),
	)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		// stage errors were already printed by the aggregator
		var reported *pipeline.StageError
		if !errors.As(err, &reported) {
			fmt.Fprintln(stderr, "eradata:", err)
		}
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
