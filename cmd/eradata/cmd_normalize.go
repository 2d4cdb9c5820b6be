package main

import (
	"github.com/spf13/cobra"

	"eradata/internal/normalize"
)

func newNormalizeCmd(st *cliState) *cobra.Command {
	var baseDir, input, output string

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Coerce numeric columns and quote every non-numeric field",
		Long: `Reads test1.csv next to the executable, converts year, candidatevotes,
totalvotes and version to integers and county_fips to its integer code
("12034.0" becomes "12034"), then writes test1_cleaned.csv in the same
directory with every non-numeric field quoted.

Any unreadable file or unconvertible value aborts the run without
writing output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("base-dir") {
				st.cfg.Normalize.BaseDir = baseDir
			}
			if flags.Changed("input") {
				st.cfg.Normalize.Input = input
			}
			if flags.Changed("output") {
				st.cfg.Normalize.Output = output
			}
			return st.manager(cmd.OutOrStdout(), nil).Run(cmd.Context(), normalize.JobName)
		},
	}

	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Directory relative paths resolve against (default: executable's directory)")
	cmd.Flags().StringVar(&input, "input", "", "Input CSV (default: test1.csv)")
	cmd.Flags().StringVar(&output, "output", "", "Output CSV (default: test1_cleaned.csv)")
	return cmd
}
