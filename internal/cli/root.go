// Package cli provides the command-line interface for dirscan.
package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/abyssdigger/tasklog/internal/config"
	"github.com/abyssdigger/tasklog/internal/scan"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewRootCommand creates the dirscan root command.
func NewRootCommand(version string) *cobra.Command {
	var (
		configPath string
		verbose    bool
		workers    int
		maxDepth   int
	)

	root := &cobra.Command{
		Use:   "dirscan [flags] DIR...",
		Short: "Scan directory trees concurrently with non-interleaved logs",
		Long: `dirscan walks every given directory in its own task. Each task buffers
its log entries and writes them to the log output as one block when it finishes,
so the logs of concurrent scans never interleave. A summary table is printed to
standard output.`,
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("verbose") {
				cfg.Verbose = verbose
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("max-depth") {
				cfg.MaxDepth = maxDepth
			}
			if cfg.Version == "" {
				cfg.Version = version
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			closer, err := cfg.Apply()
			if err != nil {
				return err
			}
			defer closer.Close()

			results := scan.New(cfg.Workers, cfg.MaxDepth, nil).ScanAll(args)
			if err := renderSummary(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if failed := countFailed(results); failed > 0 {
				return fmt.Errorf("%d of %d scans failed", failed, len(results))
			}
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "configuration file (.yaml, .yml or .toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "announce the version and task failures in the log")
	flags.IntVarP(&workers, "workers", "w", config.Default().Workers, "maximum number of concurrent scans")
	flags.IntVar(&maxDepth, "max-depth", config.Default().MaxDepth, "deepest directory level to visit")
	return root
}

func renderSummary(w io.Writer, results []scan.Result) error {
	table := tablewriter.NewTable(w)
	table.Header([]string{"Root", "Files", "Dirs", "Status", "Seconds"})
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		rows = append(rows, []string{
			r.Root,
			strconv.Itoa(r.Files),
			strconv.Itoa(r.Dirs),
			status,
			strconv.FormatFloat(r.Elapsed.Seconds(), 'f', 6, 64),
		})
	}
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return nil
}

func countFailed(results []scan.Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
