package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"aadhaarcli/internal/app"
	"aadhaarcli/pkg/contracts/domain"
)

const defaultRunsLimit = 20

func runsCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored analysis runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), c, func(a *app.Application) error {
				runs, err := a.Analysis.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printRuns(cmd.OutOrStdout(), runs)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultRunsLimit, "maximum number of runs to list")

	cmd.AddCommand(showRunCmd(c))
	cmd.AddCommand(deleteRunCmd(c))
	return cmd
}

func showRunCmd(c *cli) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a stored run with its top anomalies and integrity flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStore(ctx, c, func(a *app.Application) error {
				run, err := a.Analysis.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				anomalies, err := a.Analysis.RunAnomalies(ctx, run.ID)
				if err != nil {
					return err
				}
				flags, err := a.Analysis.RunIntegrity(ctx, run.ID)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if err := printRuns(w, []domain.Run{*run}); err != nil {
					return err
				}
				if err := printAnomalies(w, anomalies, top); err != nil {
					return err
				}
				return printIntegrityFlags(w, flags)
			})
		},
	}

	cmd.Flags().IntVar(&top, "top", 20, "number of highest scoring anomalies to print")
	return cmd
}

func deleteRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStore(ctx, c, func(a *app.Application) error {
				if err := a.Analysis.DeleteRun(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
				return nil
			})
		},
	}
}

// withStore wires the application with run history and fails when the
// configuration disables it
func withStore(ctx context.Context, c *cli, fn func(a *app.Application) error) error {
	if !c.cfg.Store.Enabled {
		return errors.New("run history is disabled (store.enabled=false)")
	}

	a, err := app.New(ctx, c.cfg, c.logger, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	return fn(a)
}

func printRuns(w io.Writer, runs []domain.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No runs recorded."))
		return nil
	}

	t := newTable("ID", "Status", "Started", "Contamination", "Enrollments", "Anomalies", "Integrity Hits", "Error")
	for _, r := range runs {
		status := string(r.Status)
		if r.Status != domain.RunStatusCompleted {
			status = errorStyle.Render(status)
		}
		t.add(r.ID, status, formatTime(r.StartedAt), fmt.Sprintf("%.3f", r.Contamination),
			itoa(r.Enrollments), itoa(r.Anomalies), itoa(r.IntegrityHits), r.Error)
	}
	return t.render(w)
}

func printAnomalies(w io.Writer, scored []domain.ScoredRecord, top int) error {
	printTitle(w, fmt.Sprintf("Anomalies (%d)", len(scored)))
	if top > 0 && len(scored) > top {
		scored = scored[:top]
	}

	t := newTable("Date", "State", "District", "Pincode", "Total", "Score", "Category")
	for _, r := range scored {
		t.add(r.Date.Format("2006-01-02"), r.State, r.District, r.Pincode,
			i64(r.Total), fmt.Sprintf("%.4f", r.Label.Score), r.Label.Category())
	}
	return t.render(w)
}

func printIntegrityFlags(w io.Writer, rows []domain.IntegrityRow) error {
	printTitle(w, fmt.Sprintf("Integrity Flags (%d)", len(rows)))
	if len(rows) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No units matched an integrity pattern."))
		return nil
	}

	t := newTable("State", "District", "Month", "Enrollments", "Demographic", "Biometric", "Demo/Enrol", "Bio/Demo", "Primary", "Patterns")
	for _, r := range rows {
		t.add(r.Key.State, r.Key.District, r.Key.Month,
			i64(r.EnrollmentTotal), i64(r.DemographicTotal), i64(r.BiometricTotal),
			f2(r.DemoToEnrol), f2(r.BioToDemo), string(r.Primary), itoa(len(r.FraudTypes)))
	}
	return t.render(w)
}
