package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/repository"
	svc "github.com/joseph-ayodele/bills-extractor/internal/server"
)

type app struct {
	cfg     *common.Config
	logger  *slog.Logger
	verbose bool
	dbURL   string
}

func main() {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "bills",
		Short:         "Extract structured line items, payments and totals from medical bills",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(a.logger)
			a.cfg = common.LoadConfig()
			if a.dbURL != "" {
				a.cfg.Database.DSN = a.dbURL
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging to stderr")
	rootCmd.PersistentFlags().StringVar(&a.dbURL, "db", "", "database DSN (overrides DB_URL)")

	rootCmd.AddCommand(
		newProcessCmd(a),
		newReplayCmd(a),
		newOCRCmd(a),
		newBatchCmd(a),
		newExportCmd(a),
		newShowCmd(a),
		newFindCmd(a),
		newStatsCmd(a),
		newMigrateCmd(a),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openStore connects and migrates. The caller closes the store.
func (a *app) openStore(ctx context.Context) (*repository.Store, error) {
	return svc.ConnectDB(ctx, a.cfg.Database, a.cfg.Database.AutoMigrate, a.logger)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
