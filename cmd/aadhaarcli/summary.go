package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"aadhaarcli/internal/app"
	"aadhaarcli/internal/config"
	"aadhaarcli/pkg/contracts/domain"
)

func summaryCmd(c *cli) *cobra.Command {
	var (
		fresh bool
		file  string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the summary tables of the last analysis",
		Long: `Print the summary tables written by the last analyze run. With --fresh the
pipeline runs in memory first and nothing is written or saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				s   domain.Summary
				err error
			)
			if fresh {
				s, err = freshSummary(cmd.Context(), c)
			} else {
				if file == "" {
					file = c.cfg.Paths.Output(config.SummaryJSON)
				}
				s, err = readSummary(file)
			}
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), s)
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "run the analysis instead of reading the saved summary")
	cmd.Flags().StringVar(&file, "file", "", "summary JSON to read (default: <output_dir>/"+config.SummaryJSON+")")

	return cmd
}

func readSummary(path string) (domain.Summary, error) {
	var s domain.Summary

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, fmt.Errorf("no summary at %s; run `%s analyze` first or pass --fresh", path, config.AppName)
	}
	if err != nil {
		return s, fmt.Errorf("failed to read summary: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse summary %s: %w", path, err)
	}
	return s, nil
}

func freshSummary(ctx context.Context, c *cli) (domain.Summary, error) {
	a, err := app.New(ctx, c.cfg, c.logger, app.Options{NoStore: true})
	if err != nil {
		return domain.Summary{}, err
	}
	defer a.Close(context.WithoutCancel(ctx))

	result, err := a.Analysis.Run(ctx)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("analysis failed: %w", err)
	}
	return result.Summary, nil
}

func printSummary(w io.Writer, s domain.Summary) error {
	sections := []func(io.Writer, domain.Summary) error{
		printTrend,
		printAges,
		printDistricts,
		printStateActivity,
		printStateRates,
		printDistrictAnomalies,
		printMonthlyAnomalies,
		printPincodes,
		printTopAnomalies,
		printFeatures,
		printCategories,
		printIntegrity,
		printSweep,
		printCleaning,
	}
	for _, section := range sections {
		if err := section(w, s); err != nil {
			return err
		}
	}
	return nil
}

func printTrend(w io.Writer, s domain.Summary) error {
	printTitle(w, "Monthly Enrollment Trend")
	t := newTable("Month", "Total", "Growth")
	for _, p := range s.Trend.Points {
		t.add(p.Month, i64(p.Total), pct(p.GrowthPct))
	}
	if err := t.render(w); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n", mutedStyle.Render(fmt.Sprintf("slope %s per month, R² %s", f2(s.Trend.Slope), f2(s.Trend.R2))))
	if len(s.Trend.Points) > 0 {
		fmt.Fprintf(w, "%s %s (%s)  %s %s (%s)\n",
			headerStyle.Render("Highest:"), s.Trend.Highest.Month, i64(s.Trend.Highest.Total),
			headerStyle.Render("Lowest:"), s.Trend.Lowest.Month, i64(s.Trend.Lowest.Total))
	}
	return nil
}

func printAges(w io.Writer, s domain.Summary) error {
	printTitle(w, "Age Distribution")
	a := s.Ages
	t := newTable("Band", "Enrollments", "Share")
	t.add("0-5", i64(a.Age0To5), pct(a.ChildPct))
	t.add("5-17", i64(a.Age5To17), pct(a.YouthPct))
	t.add("18+", i64(a.Age18Plus), pct(a.AdultPct))
	t.add("Total", i64(a.Total), "")
	if err := t.render(w); err != nil {
		return err
	}

	if len(s.AgeShares.Months) == 0 {
		return nil
	}
	as := s.AgeShares
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("Enrollment mode:"), as.Mode)
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("Age composition:"), as.Composition)
	t = newTable("Band", "Slope/Month", "R²")
	t.add("0-5", f2(as.ChildSlope), f2(as.ChildR2))
	t.add("5-17", f2(as.YouthSlope), f2(as.YouthR2))
	t.add("18+", f2(as.AdultSlope), f2(as.AdultR2))
	return t.render(w)
}

func printDistricts(w io.Writer, s domain.Summary) error {
	printTitle(w, "District Distribution")
	d := s.Districts
	t := newTable("Districts", "Total", "Mean", "Median", "Low Activity")
	t.add(itoa(d.Districts), i64(d.Total), f2(d.Mean), f2(d.Median), itoa(d.LowActivity))
	return t.render(w)
}

func printStateActivity(w io.Writer, s domain.Summary) error {
	if len(s.StateActivity) == 0 {
		return nil
	}
	printTitle(w, "State Activity")
	t := newTable("State", "Enrollments", "Demographic", "Biometric", "Combined")
	for _, a := range s.StateActivity {
		t.add(a.Key.State, i64(a.EnrollmentTotal), i64(a.DemographicTotal), i64(a.BiometricTotal), i64(a.Combined()))
	}
	return t.render(w)
}

func printStateRates(w io.Writer, s domain.Summary) error {
	printTitle(w, "Anomaly Rate by State")
	t := newTable("State", "Records", "Anomalies", "Rate")
	for _, r := range s.StateRates {
		t.add(r.State, itoa(r.Records), itoa(r.Anomalies), pct(r.RatePct))
	}
	return t.render(w)
}

func printDistrictAnomalies(w io.Writer, s domain.Summary) error {
	printTitle(w, "Anomalies by District")
	t := newTable("State", "District", "Records", "Anomalies")
	for _, d := range s.DistrictAnomalies {
		t.add(d.State, d.District, itoa(d.Records), itoa(d.Anomalies))
	}
	return t.render(w)
}

func printMonthlyAnomalies(w io.Writer, s domain.Summary) error {
	printTitle(w, "Anomalies by Month")
	t := newTable("Month", "Anomalies", "Normal")
	for _, m := range s.MonthlyAnomalies {
		t.add(m.Month, itoa(m.Anomalies), itoa(m.Normal))
	}
	return t.render(w)
}

func printTopAnomalies(w io.Writer, s domain.Summary) error {
	printTitle(w, "Most Suspicious Records")
	t := newTable("Date", "State", "District", "Pincode", "Total", "Category")
	for _, r := range s.TopAnomalies {
		t.add(r.Date.Format("2006-01-02"), r.State, r.District, r.Pincode, i64(r.Total), r.Label.Category())
	}
	return t.render(w)
}

func printIntegrity(w io.Writer, s domain.Summary) error {
	in := s.Integrity
	printTitle(w, "Integrity")
	fmt.Fprintf(w, "%s %d of %d states\n", headerStyle.Render("Flagged:"), in.Flagged, in.Stats.Units)
	fmt.Fprintf(w, "%s\n", mutedStyle.Render(fmt.Sprintf(
		"demo/enrol ratio: mean %s, median %s, %d below 0.2, %d above 5",
		f2(in.Stats.MeanDemo), f2(in.Stats.MedianDemo), in.Stats.BelowPoint2, in.Stats.AboveFive)))

	if len(in.Patterns) > 0 {
		t := newTable("Primary Pattern", "States")
		for _, p := range in.Patterns {
			t.add(string(p.Type), itoa(p.Units))
		}
		if err := t.render(w); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "%s %d\n", headerStyle.Render("Ghost districts:"), len(in.GhostDistricts))
	if len(in.GhostDistricts) > 0 {
		t := newTable("State", "District", "Enrollments", "Demographic", "Demo/Enrol")
		for _, g := range in.GhostDistricts {
			t.add(g.Key.State, g.Key.District, i64(g.EnrollmentTotal), i64(g.DemographicTotal), f2(g.DemoToEnrol))
		}
		if err := t.render(w); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "%s %d\n", headerStyle.Render("Dead districts:"), len(in.DeadDistricts))
	if len(in.DeadDistricts) > 0 {
		t := newTable("State", "District")
		for _, k := range in.DeadDistricts {
			t.add(k.State, k.District)
		}
		return t.render(w)
	}
	return nil
}

func printPincodes(w io.Writer, s domain.Summary) error {
	printTitle(w, "Top Anomalous Pincodes")
	t := newTable("Pincode", "State", "District", "Anomalies")
	for _, p := range s.TopPincodes {
		t.add(p.Pincode, p.State, p.District, itoa(p.Anomalies))
	}
	return t.render(w)
}

func printFeatures(w io.Writer, s domain.Summary) error {
	printTitle(w, "Anomalous vs Normal Records")
	t := newTable("Feature", "Anomaly Mean", "Normal Mean", "Difference")
	for _, f := range s.FeatureDiffs {
		t.add(f.Feature, f2(f.AnomalyMean), f2(f.NormalMean), pct(f.DiffPct))
	}
	return t.render(w)
}

func printCategories(w io.Writer, s domain.Summary) error {
	printTitle(w, "Anomaly Categories")
	t := newTable("Category", "Records")
	for _, c := range s.Categories {
		t.add(c.Category, itoa(c.Count))
	}
	return t.render(w)
}

func printSweep(w io.Writer, s domain.Summary) error {
	if len(s.Sweep) == 0 {
		return nil
	}
	printTitle(w, "Contamination Sweep")
	t := newTable("Contamination", "Flagged", "Rate")
	for _, p := range s.Sweep {
		t.add(fmt.Sprintf("%.3f", p.Contamination), itoa(p.Flagged), pct(p.Rate))
	}
	return t.render(w)
}

func printCleaning(w io.Writer, s domain.Summary) error {
	printTitle(w, "Cleaning")
	t := newTable("Dataset", "Rows In", "Duplicates", "Dropped", "Rows Out")
	for _, c := range s.Cleaning {
		t.add(string(c.Kind), itoa(c.RowsIn), itoa(c.Duplicates), dropDetail(c), itoa(c.RowsOut))
	}
	return t.render(w)
}

func dropDetail(c domain.CleaningStats) string {
	total := c.TotalDropped()
	if total == 0 {
		return "0"
	}
	reasons := make([]string, 0, len(c.Dropped))
	for reason, n := range c.Dropped {
		if n > 0 {
			reasons = append(reasons, fmt.Sprintf("%s %d", reason, n))
		}
	}
	sort.Strings(reasons)
	return fmt.Sprintf("%d (%s)", total, strings.Join(reasons, ", "))
}
