package main

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/joseph-ayodele/bills-extractor/internal/async"
	"github.com/joseph-ayodele/bills-extractor/internal/core"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/export"
	"github.com/joseph-ayodele/bills-extractor/internal/ingest"
	"github.com/joseph-ayodele/bills-extractor/internal/repository"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		workers    int
		skipHidden bool
		noProgress bool
		outDir     string
	)
	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Process every bill under a directory through the worker queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			uploads, stats, err := ingest.WalkDirectory(ctx, args[0], skipHidden)
			if err != nil {
				return err
			}

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			billRepo := repository.NewBillRepository(st.Driver, a.logger)

			stages, err := core.NewStages(a.cfg, billRepo, a.logger)
			if err != nil {
				return err
			}

			var todo []ingest.Upload
			for _, u := range uploads {
				if u.Err == "" && !u.Deduplicated {
					todo = append(todo, u)
				}
			}

			var p *mpb.Progress
			var bar *mpb.Bar
			if !noProgress && len(todo) > 0 {
				p = mpb.NewWithContext(ctx, mpb.WithWidth(60), mpb.WithOutput(cmd.ErrOrStderr()))
				bar = p.AddBar(int64(len(todo)),
					mpb.PrependDecorators(
						decor.Name("bills ", decor.WCSyncSpaceR),
						decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
					),
					mpb.AppendDecorators(decor.Percentage(decor.WCSyncSpace)),
				)
			}

			var (
				mu     sync.Mutex
				failed []string
				done   []*entity.BillDocument
			)
			queue := async.NewProcessorQueue(stages.Processor, a.logger,
				async.WithWorkers(workers),
				async.WithProcessTimeout(a.cfg.Ingest.ProcessTimeout),
				async.WithOnDone(func(job async.Job, doc *entity.BillDocument, err error) {
					mu.Lock()
					if err != nil {
						failed = append(failed, fmt.Sprintf("%s: %v", filepath.Base(job.Path), err))
					} else {
						done = append(done, doc)
					}
					mu.Unlock()
					if bar != nil {
						bar.Increment()
					}
				}),
			)
			for _, u := range todo {
				if err := queue.Enqueue(ctx, async.Job{Path: u.SourcePath, UploadID: u.UploadID}); err != nil {
					queue.Shutdown(ctx)
					abortProgress(p, bar)
					return err
				}
			}
			queue.Shutdown(ctx)
			if p != nil {
				p.Wait()
			}

			if outDir != "" {
				for _, doc := range done {
					if err := writeWorkbook(outDir, doc); err != nil {
						failed = append(failed, fmt.Sprintf("%s: export: %v", doc.SourcePDF, err))
					}
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "scanned=%d matched=%d succeeded=%d deduplicated=%d failed=%d processed=%d errors=%d\n",
				stats.Scanned, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed, len(done), len(failed))
			for _, u := range uploads {
				if u.Err != "" {
					fmt.Fprintf(w, "  skip %s: %s\n", u.SourcePath, u.Err)
				}
			}
			for _, f := range failed {
				fmt.Fprintf(w, "  fail %s\n", f)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d files failed", len(failed), len(todo))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "concurrent extraction workers")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot files and directories")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	cmd.Flags().StringVar(&outDir, "xlsx-dir", "", "also write one workbook per bill into this directory")
	return cmd
}

// abortProgress stops an unfinished bar and waits for the container to flush. p may be nil.
func abortProgress(p *mpb.Progress, bar *mpb.Bar) {
	if p == nil {
		return
	}
	if bar != nil {
		bar.Abort(false)
	}
	p.Wait()
}

func writeWorkbook(dir string, doc *entity.BillDocument) error {
	b, err := export.BuildWorkbook(doc)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, doc.UploadID+".xlsx"), b)
}
