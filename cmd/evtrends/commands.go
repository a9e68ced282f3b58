package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evtrends/evtrends/internal/dashboard"
	"github.com/evtrends/evtrends/internal/dataset"
	"github.com/evtrends/evtrends/internal/report"
)

func forecastCmd() *cobra.Command {
	var (
		county, mode, from, to, outDir string
		duration                       int
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast one county and write the report artifacts",
		Long: `Rolls the monthly forecast for a county and writes the forecast table
(CSV and Excel), the trend and prediction charts (PNG) and a Markdown
summary into the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			req, err := dashboard.ParseRequest(county, mode, fmt.Sprint(duration), from, to)
			if err != nil {
				return err
			}
			res, err := a.svc.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			written, err := writeArtifacts(res.Report, outDir, time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Report.Sentence())
			for _, path := range written {
				fmt.Fprintf(out, "  wrote %s\n", path)
			}
			a.logger.Debug("forecast artifacts written",
				zap.String("county", req.County),
				zap.Int("files", len(written)),
				zap.String("run_id", res.RunID),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&county, "county", "", "county to forecast (required)")
	cmd.Flags().StringVar(&mode, "mode", string(dashboard.ModeMonthly), "duration unit: monthly or yearly")
	cmd.Flags().IntVar(&duration, "duration", dashboard.DefaultDuration, "forecast length in units of --mode (1-5)")
	cmd.Flags().StringVar(&from, "from", "", "first historical date to use (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last historical date to use (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	_ = cmd.MarkFlagRequired("county")

	return cmd
}

// writeArtifacts writes every report artifact into dir and returns the paths.
func writeArtifacts(r *report.Report, dir string, generated time.Time) ([]string, error) {
	base := fileSafe(r.County)
	artifacts := []struct {
		name   string
		render func(io.Writer) error
	}{
		{base + "_forecast.csv", r.WriteCSV},
		{base + "_forecast.xlsx", r.WriteXLSX},
		{base + "_forecast.png", r.WriteTrendPNG},
		{base + "_prediction.png", r.WritePredictionPNG},
		{base + "_summary.md", func(w io.Writer) error { return r.WriteMarkdown(w, generated) }},
	}

	paths := make([]string, 0, len(artifacts))
	for _, art := range artifacts {
		path := filepath.Join(dir, art.name)
		if err := writeFile(path, art.render); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, render func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := render(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

func countiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counties",
		Short: "List the counties in the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			data, err := dataset.Load(cfg.Data.Path)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COUNTY\tMONTHS\tFIRST\tLAST\tLATEST TOTAL")
			for _, c := range data.Counties() {
				s, err := data.Select(c, time.Time{}, time.Time{})
				if err != nil {
					continue
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", c, len(s),
					s[0].Date.Format("2006-01"), s.LastDate().Format("2006-01"),
					report.FormatCount(s[len(s)-1].EVTotal))
			}
			return tw.Flush()
		},
	}
}

func runsCmd() *cobra.Command {
	var (
		county string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded forecast runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("run history is disabled: set database.path")
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			runs, err := db.ListRuns(ctx, county, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tCOUNTY\tMODE\tMONTHS\tCURRENT\tPROJECTED\tGROWTH")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%.2f%%\n",
					r.CreatedAt.Format(time.RFC3339), r.County, r.Mode, r.Horizon,
					report.FormatCount(r.Current), report.FormatCount(r.Projected), r.GrowthPct)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&county, "county", "", "only list runs for this county")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")

	return cmd
}
