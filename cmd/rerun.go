package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/disclosure-dashboard/internal/curation"
	"github.com/sells-group/disclosure-dashboard/internal/model"
)

var rerunCmd = &cobra.Command{
	Use:   "rerun",
	Short: "Re-run analysis for a company's data points",
	Long: "Replaces data points for a company and year with fresh answers. With --links the " +
		"selected points are re-run against those documents in one request; without it each " +
		"point is re-run against the documents it was last computed from.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		company, _ := cmd.Flags().GetString("company")
		year, _ := cmd.Flags().GetInt("year")
		links, _ := cmd.Flags().GetStringSlice("links")
		points, _ := cmd.Flags().GetStringSlice("points")

		if company == "" || year <= 0 {
			return eris.New("rerun: --company and --year are required")
		}

		env, err := initCuration(ctx, cfg, "rerun")
		if err != nil {
			return err
		}
		defer env.Close()

		return runRerun(ctx, env.Service, rerunOptions{
			Company: company,
			Year:    year,
			Links:   links,
			Points:  points,
			Secret:  cfg.Rerun.SecretKey,
		}, os.Stdout)
	},
}

type rerunner interface {
	Rerun(ctx context.Context, req curation.RerunRequest) (*curation.Result, error)
	RerunDataPoint(ctx context.Context, req curation.RerunDataPointRequest) (*curation.Result, error)
}

type rerunOptions struct {
	Company string
	Year    int
	Links   []string
	Points  []string
	Secret  string
}

func runRerun(ctx context.Context, svc rerunner, opts rerunOptions, w io.Writer) error {
	points := opts.Points
	if len(points) == 0 {
		points = model.CanonicalLabels()
	}

	if len(opts.Links) > 0 {
		targets := make([]curation.Target, len(points))
		for i, p := range points {
			targets[i] = curation.Target{Label: p}
		}
		res, err := svc.Rerun(ctx, curation.RerunRequest{
			CompanyName: opts.Company,
			Year:        opts.Year,
			SecretKey:   opts.Secret,
			CustomLinks: opts.Links,
			Targets:     targets,
		})
		if err != nil {
			return eris.Wrap(err, "rerun")
		}
		printResult(w, res)
		return nil
	}

	var failed int
	for _, p := range points {
		res, err := svc.RerunDataPoint(ctx, curation.RerunDataPointRequest{
			CompanyName:   opts.Company,
			Year:          opts.Year,
			SecretKey:     opts.Secret,
			DataPointType: p,
		})
		if err != nil {
			failed++
			fmt.Fprintf(w, "%s: %s\n", p, errMessage(err))
			continue
		}
		printResult(w, res)
	}
	if failed > 0 {
		return eris.Errorf("rerun: %d of %d data points failed", failed, len(points))
	}
	return nil
}

func printResult(w io.Writer, res *curation.Result) {
	fmt.Fprintln(w, res.Message)
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "  skipped %q: %s\n", s.Question, s.Reason)
	}
}

func init() {
	rerunCmd.Flags().String("company", "", "company name")
	rerunCmd.Flags().Int("year", 0, "disclosure year")
	rerunCmd.Flags().StringSlice("links", nil, "document URLs to analyze")
	rerunCmd.Flags().StringSlice("points", nil, "data points to re-run (default: all canonical)")
	rootCmd.AddCommand(rerunCmd)
}
