// Package naming implements the deterministic logical-to-physical bucket
// naming function shared by the admin API and the metadata store.
package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	defaultPrefix     = "s3gw"
	defaultHashLength = 16
	maxBucketNameLen  = 63
)

// BucketHashInput is the structured input to GenerateBackendBucketName.
type BucketHashInput struct {
	CustomerID        string
	RegionID          string
	LogicalName       string
	BackendID         string
	CollisionCounter  int
}

// GenerateBackendBucketName produces a deterministic, S3-compliant bucket
// name for the given input. Identical inputs always produce identical
// output; changing CollisionCounter changes the output.
func GenerateBackendBucketName(in BucketHashInput) string {
	hashInput := fmt.Sprintf("%s:%s:%s:%s:%d",
		in.CustomerID, in.RegionID, in.LogicalName, in.BackendID, in.CollisionCounter)
	sum := sha256.Sum256([]byte(hashInput))
	digest := hex.EncodeToString(sum[:])
	hashPart := digest[:defaultHashLength]

	suffix := backendSuffix(in.BackendID)
	name := strings.ToLower(fmt.Sprintf("%s-%s-%s", defaultPrefix, hashPart, suffix))

	if len(name) > maxBucketNameLen {
		shortSuffix := suffix
		if len(shortSuffix) > 8 {
			shortSuffix = shortSuffix[:8]
		}
		name = strings.ToLower(fmt.Sprintf("%s-%s-%s", defaultPrefix, digest[:20], shortSuffix))
	}
	return name
}

func backendSuffix(backendID string) string {
	s := strings.ReplaceAll(strings.ToLower(backendID), "_", "-")
	if len(s) > 8 {
		s = s[:8]
	}
	if s == "" {
		return "backend"
	}
	return s
}

// MapBackends produces a backend_id -> physical_bucket_name mapping for the
// given logical bucket, one hashed name per requested backend.
func MapBackends(customerID, regionID, logicalName string, backendIDs []string) map[string]string {
	mapping := make(map[string]string, len(backendIDs))
	for _, backendID := range backendIDs {
		mapping[backendID] = GenerateBackendBucketName(BucketHashInput{
			CustomerID:  customerID,
			RegionID:    regionID,
			LogicalName: logicalName,
			BackendID:   backendID,
		})
	}
	return mapping
}
