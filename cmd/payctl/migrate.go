package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cruiselens/payments-backend/internal/config"
	"github.com/cruiselens/payments-backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply store migrations",
	Long: `Apply the embedded schema migrations to the store named by
STORE_DRIVER (postgres or sqlite).`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	_, closeStore, err := db.OpenStore(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer closeStore()
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.StoreDriver)
	return nil
}
