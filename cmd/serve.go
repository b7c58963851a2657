package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/s3gw/proxy/internal/adminapi"
	"github.com/s3gw/proxy/internal/backend"
	"github.com/s3gw/proxy/internal/config"
	"github.com/s3gw/proxy/internal/dataplane"
	"github.com/s3gw/proxy/internal/gatewayhttp"
	"github.com/s3gw/proxy/internal/replication"
	"github.com/s3gw/proxy/internal/seed"
	"github.com/s3gw/proxy/internal/sigv4"
	"github.com/s3gw/proxy/internal/store"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway's HTTP server and replication worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address the gateway listens on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(addr string) error {
	s, err := store.Open(config.StoreDriver(), config.StoreDSN())
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	if err := bootstrapProviderCatalogue(ctx, s); err != nil {
		return err
	}

	registry := backend.NewRegistry(backend.DescriptorsFromConfig())
	verifier := sigv4.New(s, config.SigV4ClockSkew())

	adminMux := adminapi.New(s, registry, config.AdminAPIKey())
	dataMux := dataplane.New(s, verifier, registry, config.DefaultBackendIDOrDefault(), config.BackendIOTimeout())
	handler := gatewayhttp.New(adminMux, dataMux)

	worker := replication.New(s, registry, replication.Config{
		PollInterval:   config.WorkerInterval(),
		JobTimeout:     config.JobTimeout(),
		MaxObjectBytes: config.MaxReplicationObjectBytes(),
	})

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go worker.Run(workerCtx)

	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down")
		cancelWorker()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.BackendIOTimeout())
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func bootstrapProviderCatalogue(ctx context.Context, s store.Store) error {
	if config.SkipBootstrap() {
		return nil
	}
	path := config.ProviderCSVPath()
	if path == "" {
		return nil
	}
	rows, err := seed.LoadProviderCapabilities(path)
	if err != nil {
		return fmt.Errorf("load provider catalogue: %w", err)
	}
	if err := s.SeedProviderCapabilities(ctx, rows); err != nil {
		return fmt.Errorf("seed provider catalogue: %w", err)
	}
	log.Printf("seeded %d provider capability rows from %s", len(rows), path)
	return nil
}
