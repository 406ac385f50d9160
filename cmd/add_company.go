package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-dashboard/internal/curation"
	"github.com/sells-group/disclosure-dashboard/internal/roster"
)

var addCompanyCmd = &cobra.Command{
	Use:   "add-company",
	Short: "Add companies to the dashboard",
	Long:  "Adds an empty dashboard row for one company and year, or for every entry of a YAML, CSV or XLSX roster.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		company, _ := cmd.Flags().GetString("company")
		year, _ := cmd.Flags().GetInt("year")
		file, _ := cmd.Flags().GetString("file")

		entries, err := companyEntries(company, year, file)
		if err != nil {
			return err
		}

		env, err := initCuration(ctx, cfg, "add-company")
		if err != nil {
			return err
		}
		defer env.Close()

		return addCompanies(ctx, env.Service, cfg.Rerun.SecretKey, entries, os.Stdout)
	},
}

// companyEntries resolves the flags into a roster.
func companyEntries(company string, year int, file string) ([]roster.Entry, error) {
	switch {
	case file != "" && company != "":
		return nil, eris.New("add-company: use either --file or --company, not both")
	case file != "":
		entries, err := roster.Load(file)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, eris.Errorf("add-company: %s has no entries", file)
		}
		return entries, nil
	case company != "" && year > 0:
		return []roster.Entry{{Company: company, Year: year}}, nil
	default:
		return nil, eris.New("add-company: --company and --year, or --file, are required")
	}
}

type companyAdder interface {
	AddCompany(ctx context.Context, req curation.AddCompanyRequest) (*curation.AddCompanyResult, error)
}

// addCompanies adds every entry. Existing pairs are reported and skipped;
// any other failure is counted and returned at the end.
func addCompanies(ctx context.Context, svc companyAdder, secret string, entries []roster.Entry, w io.Writer) error {
	var added, skipped, failed int
	for _, e := range entries {
		res, err := svc.AddCompany(ctx, curation.AddCompanyRequest{
			CompanyName: e.Company,
			Year:        e.Year,
			SecretKey:   secret,
		})
		switch {
		case err == nil:
			added++
			fmt.Fprintln(w, res.Message)
		case curation.KindOf(err) == curation.KindConflict:
			skipped++
			fmt.Fprintf(w, "skipped: %s\n", errMessage(err))
		default:
			failed++
			zap.L().Error("add-company failed",
				zap.String("company", e.Company),
				zap.Int("year", e.Year),
				zap.Error(err),
			)
			fmt.Fprintf(w, "failed: %s (%d): %s\n", e.Company, e.Year, errMessage(err))
		}
	}

	fmt.Fprintf(w, "added %d, skipped %d, failed %d\n", added, skipped, failed)
	if failed > 0 {
		return eris.Errorf("add-company: %d of %d entries failed", failed, len(entries))
	}
	return nil
}

// errMessage returns the caller-facing message of a curation error.
func errMessage(err error) string {
	var ce *curation.Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}

func init() {
	addCompanyCmd.Flags().String("company", "", "company name")
	addCompanyCmd.Flags().Int("year", 0, "disclosure year")
	addCompanyCmd.Flags().String("file", "", "roster file (.yaml, .csv or .xlsx)")
	rootCmd.AddCommand(addCompanyCmd)
}
