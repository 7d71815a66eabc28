package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/bills"
	"github.com/joseph-ayodele/bills-extractor/internal/export"
	"github.com/joseph-ayodele/bills-extractor/internal/repository"
)

// withService opens the store and runs fn against a read-only bill service.
func (a *app) withService(cmd *cobra.Command, fn func(*bills.Service) error) error {
	st, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()
	billRepo := repository.NewBillRepository(st.Driver, a.logger)
	return fn(bills.NewService(billRepo, export.NewService(billRepo, a.logger), nil, a.logger))
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show UPLOAD_ID",
		Short: "Print a stored bill as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(s *bills.Service) error {
				doc, err := s.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	var req bills.FindRequest
	cmd := &cobra.Command{
		Use:   "find",
		Short: "List stored bills for a patient by MRN or name",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(s *bills.Service) error {
				docs, err := s.Find(cmd.Context(), req)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, d := range docs {
					bill := "-"
					if d.Header.PrimaryBillNumber != nil {
						bill = *d.Header.PrimaryBillNumber
					}
					fmt.Fprintf(w, "%s  %s  %-12s  %-24s  %10.2f  %s\n",
						d.UploadID, d.ExtractionDate.Format("2006-01-02"), bill, d.Patient.Name, d.GrandTotal, d.Status)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.MRN, "mrn", "", "patient medical record number")
	cmd.Flags().StringVar(&req.Name, "name", "", "patient name (case-insensitive substring)")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print totals across all stored bills",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(s *bills.Service) error {
				st, err := s.Stats(cmd.Context())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(w, st)
				}
				fmt.Fprintf(w, "bills:   %d\nrevenue: %.2f\naverage: %.2f\n", st.TotalBills, st.TotalRevenue, st.AverageBill)
				for _, c := range constants.AllCategories() {
					fmt.Fprintf(w, "  %-24s %12.2f\n", c, st.CategoryTotals[c])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export UPLOAD_ID",
		Short: "Write a stored bill to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = args[0] + ".xlsx"
			}
			return a.withService(cmd, func(s *bills.Service) error {
				b, err := s.Export(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := writeFile(out, b); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "wrote", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default UPLOAD_ID.xlsx)")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the bill tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := repository.Open(cmd.Context(), repository.ConfigFrom(a.cfg.Database), a.logger)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := repository.Migrate(cmd.Context(), st.Driver); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func writeFile(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}
