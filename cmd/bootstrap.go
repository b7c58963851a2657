package cmd

import (
	"context"
	"fmt"

	"github.com/s3gw/proxy/internal/config"
	"github.com/s3gw/proxy/internal/seed"
	"github.com/s3gw/proxy/internal/store"
	"github.com/spf13/cobra"
)

var (
	bootstrapSkipSeed bool
	bootstrapCSVPath  string
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Initialize the metadata schema and seed the provider catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBootstrap()
	},
}

func init() {
	bootstrapCmd.Flags().BoolVar(&bootstrapSkipSeed, "skip-seed", false, "skip loading the provider-capability CSV")
	bootstrapCmd.Flags().StringVar(&bootstrapCSVPath, "csv-path", "", "path to the provider-capability CSV (or set PROVIDER_CSV_PATH)")
	rootCmd.AddCommand(bootstrapCmd)
}

func runBootstrap() error {
	s, err := store.Open(config.StoreDriver(), config.StoreDSN())
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	fmt.Println("schema initialized")

	if bootstrapSkipSeed || config.SkipBootstrap() {
		fmt.Println("skipping provider catalogue seed")
		return nil
	}

	path := bootstrapCSVPath
	if path == "" {
		path = config.ProviderCSVPath()
	}
	if path == "" {
		fmt.Println("no provider catalogue path configured, skipping seed")
		return nil
	}

	rows, err := seed.LoadProviderCapabilities(path)
	if err != nil {
		return fmt.Errorf("load provider catalogue: %w", err)
	}
	if err := s.SeedProviderCapabilities(ctx, rows); err != nil {
		return fmt.Errorf("seed provider catalogue: %w", err)
	}
	fmt.Printf("seeded %d provider capability rows from %s\n", len(rows), path)
	return nil
}
