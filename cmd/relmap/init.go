package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/relmap/internal/application/handlers"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize relmap in the project directory",
		Long: `Creates the .relmap directory with a default config.yaml and an SQLite
database seeded with the default relation types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd)
		},
	}
}

func runInit(cmd *cobra.Command) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}

	result, err := handlers.NewInitHandler().Handle(dir)
	if err != nil {
		return err
	}

	// Opening the dependencies creates the schema and seeds the defaults.
	err = withDeps(cmd.Context(), func(d *Deps) error {
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}

	fmt.Printf("Initialized relmap in %s\n", dir)
	fmt.Printf("  Config:   %s\n", result.ConfigPath)
	fmt.Printf("  Database: %s\n", result.DatabasePath)
	return nil
}
