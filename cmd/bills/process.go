package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/bills-extractor/internal/core"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/extract"
	"github.com/joseph-ayodele/bills-extractor/internal/ingest"
	"github.com/joseph-ayodele/bills-extractor/internal/pipeline"
	"github.com/joseph-ayodele/bills-extractor/internal/repository"
)

func newProcessCmd(a *app) *cobra.Command {
	var noStore bool
	cmd := &cobra.Command{
		Use:   "process FILE",
		Short: "OCR one bill, print its JSON document and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := ingest.PrepareFile(args[0])
			if err != nil {
				return err
			}

			var store pipeline.Store
			if !noStore {
				st, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer st.Close()
				store = repository.NewBillRepository(st.Driver, a.logger)
			}

			stages, err := core.NewStages(a.cfg, store, a.logger)
			if err != nil {
				return err
			}
			doc, err := stages.Processor.ProcessFile(ctx, pipeline.Request{Path: u.SourcePath, UploadID: u.UploadID})
			return printDoc(cmd, doc, err)
		},
	}
	cmd.Flags().BoolVar(&noStore, "no-store", false, "print the document without writing it to the database")
	return cmd
}

func newReplayCmd(a *app) *cobra.Command {
	var noStore bool
	var uploadID string
	cmd := &cobra.Command{
		Use:   "replay DUMP.json[.gz]",
		Short: "Run extraction over a saved OCR dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !extract.IsDumpPath(args[0]) {
				return fmt.Errorf("%s is not an OCR dump (.json or .json.gz)", args[0])
			}
			var store pipeline.Store
			if !noStore {
				st, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer st.Close()
				store = repository.NewBillRepository(st.Driver, a.logger)
			}
			proc := core.NewReplayProcessor(a.cfg, store, a.logger)
			doc, err := proc.ProcessFile(ctx, pipeline.Request{Path: args[0], UploadID: uploadID})
			return printDoc(cmd, doc, err)
		},
	}
	cmd.Flags().BoolVar(&noStore, "no-store", true, "do not write the document to the database")
	cmd.Flags().StringVar(&uploadID, "upload-id", "", "upload id to store under (random when empty)")
	return cmd
}

func newOCRCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "ocr FILE",
		Short: "Run OCR and layout clustering only and save the result as a dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := core.NewStages(a.cfg, nil, a.logger)
			if err != nil {
				return err
			}
			res, err := stages.Source.Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			if err := extract.WriteDump(out, res); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d pages, %d fragments, %d item blocks)\n", out, res.Pages, len(res.Lines), len(res.ItemBlocks))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "dump path (.json or .json.gz); stdout when empty")
	return cmd
}

// printDoc prints doc even when storage failed, then reports the error.
func printDoc(cmd *cobra.Command, doc *entity.BillDocument, err error) error {
	if doc != nil {
		if werr := writeJSON(cmd.OutOrStdout(), doc); werr != nil {
			return werr
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
		return err
	}
	return nil
}
