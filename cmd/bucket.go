package cmd

import (
	"context"
	"fmt"

	"github.com/s3gw/proxy/internal/config"
	"github.com/s3gw/proxy/internal/naming"
	"github.com/s3gw/proxy/internal/store"
	"github.com/spf13/cobra"
)

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Manage logical bucket mappings",
}

var (
	bucketCreateCustomerID  string
	bucketCreateRegionID    string
	bucketCreateLogicalName string
	bucketCreateBackendIDs  []string
)

var bucketCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Map a logical bucket name onto one or more backend buckets",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(config.StoreDriver(), config.StoreDSN())
		if err != nil {
			return fmt.Errorf("open metadata store: %w", err)
		}
		defer s.Close()

		backendMapping := naming.MapBackends(bucketCreateCustomerID, bucketCreateRegionID, bucketCreateLogicalName, bucketCreateBackendIDs)

		mappings, err := s.UpsertBucketMapping(context.Background(), bucketCreateCustomerID, bucketCreateRegionID, bucketCreateLogicalName, backendMapping)
		if err != nil {
			return fmt.Errorf("create bucket mapping: %w", err)
		}
		for _, m := range mappings {
			fmt.Printf("backend=%s bucket=%s\n", m.BackendID, m.BackendBucket)
		}
		return nil
	},
}

func init() {
	bucketCreateCmd.Flags().StringVar(&bucketCreateCustomerID, "customer-id", "", "tenant's customer id")
	bucketCreateCmd.Flags().StringVar(&bucketCreateRegionID, "region-id", "", "logical region id")
	bucketCreateCmd.Flags().StringVar(&bucketCreateLogicalName, "logical-name", "", "logical bucket name clients address")
	bucketCreateCmd.Flags().StringSliceVar(&bucketCreateBackendIDs, "backend-id", nil, "backend id to map this bucket onto (repeatable)")
	bucketCreateCmd.MarkFlagRequired("customer-id")
	bucketCreateCmd.MarkFlagRequired("region-id")
	bucketCreateCmd.MarkFlagRequired("logical-name")
	bucketCreateCmd.MarkFlagRequired("backend-id")

	bucketCmd.AddCommand(bucketCreateCmd)
	rootCmd.AddCommand(bucketCmd)
}
