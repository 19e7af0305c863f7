// Command gcti-report generates the synthetic incident dataset and prints
// the dashboard figures without starting the server.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"gctidash/internal/compliance"
	"gctidash/internal/config"
	"gctidash/internal/dataset"
	"gctidash/internal/exporter"
	"gctidash/internal/impact"
	"gctidash/internal/ingest"
	"gctidash/internal/stats"
	"gctidash/internal/validation"
	"gctidash/pkg/contracts"
	"gctidash/pkg/contracts/domain"
)

// Report is the JSON form of the command output
type Report struct {
	NEvents        int                                `json:"n_events"`
	Seed           uint64                             `json:"seed"`
	Anchor         string                             `json:"anchor"`
	TMTI           map[domain.Priority]*stats.Summary `json:"tmti"`
	Compliance     *compliance.Report                 `json:"compliance,omitempty"`
	Impact         impact.Impact                      `json:"impact"`
	Geo            *ingest.GeoBreakdown               `json:"geo,omitempty"`
	CrossReference *impact.CrossReference             `json:"cross_reference,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("Report failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("gcti-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	nEvents := fs.Int("n-events", dataset.DefaultNEvents, "number of incidents to generate")
	seed := fs.Uint64("seed", dataset.DefaultSeed, "generator seed")
	anchor := fs.String("anchor", "", "last registration date, YYYY-MM-DD (defaults to today)")
	window := fs.Int("window", dataset.DefaultTrailingWindowDays, "trailing window in days")
	export := fs.String("export", "", "write the dataset to this .csv or .xlsx file")
	upload := fs.String("upload", "", "real-data .csv or .xlsx file to cross-reference")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	version := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	anchorDate := time.Now()
	if *anchor != "" {
		t, err := time.Parse(domain.DateLayout, *anchor)
		if err != nil {
			return fmt.Errorf("invalid anchor %q: %w", *anchor, err)
		}
		anchorDate = t
	}

	ds, err := dataset.Generate(dataset.Options{
		NEvents:            *nEvents,
		Seed:               *seed,
		TrailingWindowDays: *window,
		Anchor:             anchorDate,
	})
	if err != nil {
		return err
	}

	files := validation.NewFileValidator(slog.Default())

	if *export != "" {
		if err := files.ValidateOutputDirectory(filepath.Dir(*export)); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := exporter.WriteFile(*export, ds); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	if *upload != "" {
		if err := files.ValidateUpload(*upload, config.DefaultUploadMaxBytes); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
	}

	report, err := build(ds, *nEvents, *seed, anchorDate, *upload)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(stdout, report)
}

func build(ds *dataset.Dataset, nEvents int, seed uint64, anchor time.Time, upload string) (*Report, error) {
	report := &Report{
		NEvents: nEvents,
		Seed:    seed,
		Anchor:  anchor.Format(domain.DateLayout),
		TMTI:    make(map[domain.Priority]*stats.Summary),
		Impact:  impact.Translate(ds, impact.DefaultParams()),
	}

	for _, p := range domain.Priorities() {
		s, err := stats.SummarizePriority(ds, p)
		switch {
		case errors.Is(err, stats.ErrInsufficientData):
			report.TMTI[p] = nil
		case err != nil:
			return nil, err
		default:
			report.TMTI[p] = &s
		}
	}

	rep, err := compliance.NewAggregator(compliance.DefaultPolicy()).Report(ds)
	if err != nil && !compliance.IsEmpty(err) {
		return nil, err
	}
	if err == nil {
		report.Compliance = &rep
	}

	if upload != "" {
		f, err := os.Open(upload)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		table, err := ingest.Parse(upload, f)
		if err != nil {
			return nil, err
		}
		geo := ingest.Geographic(table)
		xref := impact.Distribute(report.Impact, geo)
		report.Geo = &geo
		report.CrossReference = &xref
	}
	return report, nil
}

func printReport(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Dataset\t%d incidents, seed %d, ending %s\n\n", r.NEvents, r.Seed, r.Anchor)

	fmt.Fprintln(tw, "Priority\tCount\tMean\tStd\tP90")
	for _, p := range domain.Priorities() {
		s := r.TMTI[p]
		if s == nil {
			fmt.Fprintf(tw, "%s\t0\t-\t-\t-\n", p)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\n", p, s.Count, s.Mean, s.StdDev, s.P90)
	}
	fmt.Fprintln(tw)

	if c := r.Compliance; c != nil {
		nc := c.NonCompliance
		fmt.Fprintf(tw, "Non-compliance\t%.2f%% (%d of %d, target < %.2f%%, %s)\n",
			nc.Percent, nc.Unauthorized, nc.Total, nc.ThresholdPct, nc.Status)
		for _, rc := range c.RiskDistribution {
			fmt.Fprintf(tw, "  %s\t%d\n", rc.Label, rc.Count)
		}
		fmt.Fprintln(tw)
	}

	fmt.Fprintf(tw, "Downtime\t%.2f h over %d High incidents\n", r.Impact.DowntimeHours, r.Impact.HighPriorityIncidents)
	fmt.Fprintf(tw, "Affected\t%d people (%.0f per hour)\n", r.Impact.AffectedCount, r.Impact.AffectedPerHour)

	if g := r.Geo; g != nil {
		fmt.Fprintln(tw)
		if g.HemoglobinMean != nil {
			fmt.Fprintf(tw, "hb_dx mean\t%.2f (%d samples)\n", *g.HemoglobinMean, g.HemoglobinSamples)
		}
		if x := r.CrossReference; x != nil && x.Available {
			fmt.Fprintln(tw, "Province\tRows\tShare\tAffected")
			for _, p := range x.Provinces {
				fmt.Fprintf(tw, "%s\t%d\t%.2f%%\t%d\n", p.Province, p.Rows, p.Share, p.Affected)
			}
		} else {
			fmt.Fprintln(tw, "Provinces\tnot available")
		}
	}

	return tw.Flush()
}
