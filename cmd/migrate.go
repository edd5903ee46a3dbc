package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/listings-etl/internal/etl"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := etl.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "migrate")
		}

		fmt.Println("Migrations up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
