package main

import (
	"context"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"aadhaarcli/internal/app"
	"aadhaarcli/internal/files"
	"aadhaarcli/internal/infrastructure"
	"aadhaarcli/internal/services"
	"aadhaarcli/pkg/contracts/domain"
)

func analyzeCmd(c *cli) *cobra.Command {
	var (
		noExport      bool
		noStore       bool
		noProgress    bool
		contamination float64
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis pipeline",
		Long: `Load every input file, clean and score the enrollment records, compare
the three datasets per district and summarize the results. The reports are
written to the output directory and the run is saved to the history
database unless disabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("contamination") {
				if contamination <= 0 || contamination > 0.5 {
					return fmt.Errorf("contamination must be in (0, 0.5], got %v", contamination)
				}
				c.cfg.Anomaly.Contamination = contamination
			}

			// Correlates setup logs until the run takes over with its own ID
			ctx := infrastructure.EnsureTraceID(cmd.Context())
			a, err := app.New(ctx, c.cfg, c.logger, app.Options{Export: !noExport, NoStore: noStore})
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			report, err := a.Validator.ValidateInputs(c.cfg.Paths.InputDirs())
			if err != nil {
				return fmt.Errorf("input check failed: %w", err)
			}

			if !noProgress {
				bar := newLoadBar(cmd.ErrOrStderr(), report.Total())
				a.Loader.OnFile(func(kind domain.RecordKind, file files.FileInfo, _ int) {
					bar.Describe(fmt.Sprintf("%-11s %s", kind, file.Name))
					_ = bar.Add(1)
				})
				defer func() { _ = bar.Finish() }()
			}

			result, runErr := a.Analysis.Run(ctx)
			if result != nil {
				if err := printResult(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			}
			if runErr != nil {
				return fmt.Errorf("analysis failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noExport, "no-export", false, "skip writing the CSV, XLSX and JSON reports")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not save the run to the history database")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the file loading progress bar")
	cmd.Flags().Float64Var(&contamination, "contamination", 0, "override the expected outlier fraction")

	return cmd
}

func newLoadBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("Loading input files"),
		progressbar.OptionClearOnFinish(),
	)
}

func printResult(w io.Writer, result *services.Result) error {
	run := result.Run

	printTitle(w, "Run "+run.ID)
	status := string(run.Status)
	if run.Status != domain.RunStatusCompleted {
		status = errorStyle.Render(status)
	}
	overview := newTable("Status", "Duration", "Enrollments", "Demographic", "Biometric", "Anomalies", "Integrity Hits")
	overview.add(status, formatDuration(run.Duration),
		itoa(run.Enrollments), itoa(run.Demographic), itoa(run.Biometric),
		itoa(run.Anomalies), itoa(run.IntegrityHits))
	if err := overview.render(w); err != nil {
		return err
	}

	printTitle(w, "Stages")
	stages := newTable("Stage", "Status", "Records", "Duration", "Detail")
	for _, step := range result.Steps {
		detail := step.Message
		if step.Error != "" {
			detail = errorStyle.Render(step.Error)
		}
		stages.add(step.Name, string(step.Status), itoa(step.Records), fmt.Sprintf("%dms", step.DurationMS), detail)
	}
	if err := stages.render(w); err != nil {
		return err
	}

	if run.Error != "" {
		fmt.Fprintf(w, "\n%s %s\n", errorStyle.Render("Error:"), run.Error)
	}

	if len(result.Exports) > 0 {
		printTitle(w, "Reports")
		for _, path := range result.Exports {
			fmt.Fprintf(w, "  %s\n", path)
		}
	}
	return nil
}
