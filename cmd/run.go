package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listings-etl/internal/etl"
	"github.com/sells-group/listings-etl/internal/ingest"
	"github.com/sells-group/listings-etl/internal/model"
	"github.com/sells-group/listings-etl/internal/transform"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ETL batch",
	Long: `Reads raw listings from a file, normalizes them, resolves category and
company references, and loads products plus snapshot metrics in one
transaction. The batch result is printed as JSON.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		source, _ := cmd.Flags().GetString("source")
		format, _ := cmd.Flags().GetString("format")
		charset, _ := cmd.Flags().GetString("charset")
		sheet, _ := cmd.Flags().GetString("sheet")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		if source == "" {
			source = filepath.Base(input)
		}
		if concurrency <= 0 {
			concurrency = cfg.ETL.Concurrency
		}

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		// Ensure the schema is current before writing.
		if err := etl.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "run: migrate")
		}

		raws, err := ingest.ReadFile(input, ingest.Options{
			Format:  format,
			Charset: charset,
			Sheet:   sheet,
		})
		if err != nil {
			return eris.Wrap(err, "run: read input")
		}

		zap.L().Info("starting batch",
			zap.String("input", input),
			zap.String("source", source),
			zap.Int("records", len(raws)),
			zap.Int("concurrency", concurrency),
		)

		pipeline := etl.New(pool, transform.Options{
			DefaultCategory: cfg.ETL.DefaultCategory,
			DefaultCompany:  cfg.ETL.DefaultCompany,
			PriceMin:        cfg.ETL.PriceMin,
			PriceMax:        cfg.ETL.PriceMax,
			Concurrency:     concurrency,
		}, cfg.ETL.FeaturedMinRating, cfg.ETL.FeaturedMinReviews)

		result, err := pipeline.Run(ctx, source, raws)
		if result != nil {
			out, merr := json.MarshalIndent(result, "", "  ")
			if merr == nil {
				fmt.Println(string(out))
			}
		}
		if err != nil {
			return eris.Wrap(err, "run: batch")
		}
		if result.State != model.StateReported {
			return eris.Errorf("run: batch aborted (state %s)", result.State)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("input", "", "path to the input file (csv, xlsx, or ndjson)")
	runCmd.Flags().String("source", "", "source label recorded with the run (default: input filename)")
	runCmd.Flags().String("format", "", "input format override: csv, xlsx, ndjson")
	runCmd.Flags().String("charset", "", "source charset for csv input (e.g. windows-1252)")
	runCmd.Flags().String("sheet", "", "xlsx sheet name (default: first sheet)")
	runCmd.Flags().Int("concurrency", 0, "transform worker count (default: etl.concurrency)")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
