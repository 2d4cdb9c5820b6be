package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eradata/internal/aggregate"
	"eradata/internal/models"
	"eradata/internal/storage"
)

// storePublisher opens the PocketBase store on the first publish, so a run
// that stops before publishing leaves no data directory behind.
type storePublisher struct {
	dataDir string
	logger  *zap.Logger
	store   *storage.PocketBaseStore
}

func (p *storePublisher) ReplaceResults(ctx context.Context, records []models.AggregatedRecord) error {
	if p.store == nil {
		store, err := storage.NewPocketBaseStore(p.dataDir, p.logger)
		if err != nil {
			return err
		}
		p.store = store
	}
	return p.store.ReplaceResults(ctx, records)
}

func (p *storePublisher) close() {
	if p.store == nil {
		return
	}
	if err := p.store.Close(); err != nil {
		p.logger.Warn("failed to close store", zap.Error(err))
	}
}

func newAggregateCmd(st *cliState) *cobra.Command {
	var (
		input, output, store string
		preview              int
		strict               bool
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Merge vote records across counting modes into TOTAL rows",
		Long: `Loads data-refinement/og.csv, groups rows by year, state, state_po,
county_name, county_fips, office, candidate and party, sums candidatevotes,
keeps the first totalvotes and version of each group and sets mode to TOTAL.
The result is written to transformed_dataset.csv with every field quoted.

With --store (or storage.data_dir) the results also replace the contents
of the PocketBase results collection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg := st.cfg
			if flags.Changed("input") {
				cfg.Aggregate.Input = input
			}
			if flags.Changed("output") {
				cfg.Aggregate.Output = output
			}
			if flags.Changed("preview") {
				cfg.Aggregate.PreviewRows = preview
			}
			if flags.Changed("strict") {
				cfg.Aggregate.Strict = strict
			}
			if flags.Changed("store") {
				cfg.Storage.DataDir = store
			}

			var publisher aggregate.Publisher
			if cfg.Storage.DataDir != "" {
				pub := &storePublisher{dataDir: cfg.Storage.DataDir, logger: st.logger}
				defer pub.close()
				publisher = pub
			}

			return st.manager(cmd.OutOrStdout(), publisher).Run(cmd.Context(), aggregate.JobName)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Input CSV (default: data-refinement/og.csv)")
	cmd.Flags().StringVar(&output, "output", "", "Output CSV (default: transformed_dataset.csv)")
	cmd.Flags().IntVar(&preview, "preview", 0, "Rows shown in the load preview (default: 5)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when totalvotes or version differ within a group")
	cmd.Flags().StringVar(&store, "store", "", "PocketBase data directory to publish results to")
	return cmd
}
