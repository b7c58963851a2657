package cmd

import (
	"context"
	"fmt"

	"github.com/s3gw/proxy/internal/config"
	"github.com/s3gw/proxy/internal/store"
	"github.com/spf13/cobra"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenant credentials",
}

var (
	tenantCreateCustomerID string
	tenantCreateAccessKey  string
	tenantCreateSecretKey  string
)

var tenantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create or rotate a tenant's access/secret key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(config.StoreDriver(), config.StoreDSN())
		if err != nil {
			return fmt.Errorf("open metadata store: %w", err)
		}
		defer s.Close()

		ctx := context.Background()
		if err := s.UpsertTenantCredential(ctx, tenantCreateCustomerID, tenantCreateAccessKey, tenantCreateSecretKey); err != nil {
			return fmt.Errorf("create tenant credential: %w", err)
		}
		fmt.Printf("tenant %s credential %s created\n", tenantCreateCustomerID, tenantCreateAccessKey)
		return nil
	},
}

func init() {
	tenantCreateCmd.Flags().StringVar(&tenantCreateCustomerID, "customer-id", "", "tenant's customer id")
	tenantCreateCmd.Flags().StringVar(&tenantCreateAccessKey, "access-key", "", "access key to issue")
	tenantCreateCmd.Flags().StringVar(&tenantCreateSecretKey, "secret-key", "", "secret key to issue")
	tenantCreateCmd.MarkFlagRequired("customer-id")
	tenantCreateCmd.MarkFlagRequired("access-key")
	tenantCreateCmd.MarkFlagRequired("secret-key")

	tenantCmd.AddCommand(tenantCreateCmd)
	rootCmd.AddCommand(tenantCmd)
}
