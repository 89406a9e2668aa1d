// Package main provides the entry point for the relmap CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0-dev"
	globalDir string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "relmap",
		Short:   "Mirror picker selections into a relation store",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&globalDir, "dir", "C", "", "Project directory (default: current directory)")

	rootCmd.AddCommand(
		newInitCmd(),
		newTypesCmd(),
		newContentTypesCmd(),
		newDataTypesCmd(),
		newPropertiesCmd(),
		newSaveCmd(),
		newShowCmd(),
		newListCmd(),
		newRelationsCmd(),
		newAuditCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
