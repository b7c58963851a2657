// Package config centralizes environment/flag resolution for the gateway,
// resolving flags, then config file values, then environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envAdminAPIKey      = "ADMIN_API_KEY"
	envStoreDriver      = "STORE_DRIVER"
	envStoreDSN         = "STORE_DSN"
	envMetadataDBPath   = "PROXY_METADATA_DB_PATH"
	envBackendEndpoints = "S3_BACKEND_ENDPOINTS"
	envBackendEndpoint  = "S3_BACKEND_ENDPOINT"
	envDefaultBackendID = "S3_BACKEND_DEFAULT_ID"
	envBackendRegion    = "S3_BACKEND_REGION"
	envBackendAccessKey = "S3_BACKEND_ACCESS_KEY"
	envBackendSecretKey = "S3_BACKEND_SECRET_KEY"
	envWorkerInterval   = "REPLICATION_WORKER_INTERVAL"
	envJobTimeout       = "REPLICATION_JOB_TIMEOUT"
	envMaxObjectBytes   = "REPLICATION_MAX_OBJECT_BYTES"
	envBackendIOTimeout = "BACKEND_IO_TIMEOUT"
	envProviderCSVPath  = "PROVIDER_CSV_PATH"
	envSkipBootstrap    = "PROXY_SKIP_BOOTSTRAP"
	envSigV4ClockSkew   = "SIGV4_CLOCK_SKEW"

	DefaultBackendID        = "primary"
	DefaultStoreDriver      = "sqlite"
	DefaultMetadataDBPath   = "metadata.db"
	DefaultWorkerInterval   = 2 * time.Second
	DefaultJobTimeout       = 60 * time.Second
	DefaultBackendIOTimeout = 10 * time.Second
	DefaultMaxObjectBytes   = int64(512 << 20) // 512MiB
	DefaultSigV4ClockSkew   = 15 * time.Minute
)

// AdminAPIKey returns the configured operator admin key, or "" if unset.
func AdminAPIKey() string {
	return strings.TrimSpace(envOrViper(envAdminAPIKey, "admin.api_key"))
}

// StoreDriver returns the configured metadata store driver.
func StoreDriver() string {
	if v := strings.TrimSpace(envOrViper(envStoreDriver, "store.driver")); v != "" {
		return v
	}
	return DefaultStoreDriver
}

// StoreDSN returns the connection string/path for the configured driver.
// For sqlite this falls back to PROXY_METADATA_DB_PATH for compatibility.
func StoreDSN() string {
	if v := strings.TrimSpace(envOrViper(envStoreDSN, "store.dsn")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(envMetadataDBPath)); v != "" {
		return v
	}
	return DefaultMetadataDBPath
}

// BackendEndpoints parses S3_BACKEND_ENDPOINTS ("id=url,id=url") or falls
// back to a single S3_BACKEND_ENDPOINT entry under the default backend id.
func BackendEndpoints() map[string]string {
	mapping := parseMapping(os.Getenv(envBackendEndpoints))
	if len(mapping) == 0 {
		if single := strings.TrimSpace(os.Getenv(envBackendEndpoint)); single != "" {
			mapping[DefaultBackendIDOrDefault()] = single
		}
	}
	return mapping
}

func parseMapping(value string) map[string]string {
	mapping := map[string]string{}
	if value == "" {
		return mapping
	}
	for _, part := range strings.Split(value, ",") {
		if idx := strings.Index(part, "="); idx >= 0 {
			key := strings.TrimSpace(part[:idx])
			url := strings.TrimSpace(part[idx+1:])
			if key != "" && url != "" {
				mapping[key] = url
			}
		}
	}
	return mapping
}

// DefaultBackendIDOrDefault returns the configured default backend id.
func DefaultBackendIDOrDefault() string {
	if v := strings.TrimSpace(os.Getenv(envDefaultBackendID)); v != "" {
		return v
	}
	return DefaultBackendID
}

// BackendRegion returns the proxy-owned region used for backend SDK clients.
func BackendRegion() string {
	if v := strings.TrimSpace(os.Getenv(envBackendRegion)); v != "" {
		return v
	}
	return "us-east-1"
}

// BackendCredentials returns the proxy-owned access/secret key pair used to
// talk to every backend.
func BackendCredentials() (accessKey, secretKey string) {
	return os.Getenv(envBackendAccessKey), os.Getenv(envBackendSecretKey)
}

// WorkerInterval returns the sleep interval between empty replication polls.
func WorkerInterval() time.Duration {
	return durationFromSecondsEnv(envWorkerInterval, DefaultWorkerInterval)
}

// JobTimeout returns the per-job ceiling the replication worker imposes.
func JobTimeout() time.Duration {
	return durationFromSecondsEnv(envJobTimeout, DefaultJobTimeout)
}

// BackendIOTimeout returns the per-request backend I/O timeout.
func BackendIOTimeout() time.Duration {
	return durationFromSecondsEnv(envBackendIOTimeout, DefaultBackendIOTimeout)
}

// SigV4ClockSkew returns the allowed clock skew window for request freshness.
func SigV4ClockSkew() time.Duration {
	return durationFromSecondsEnv(envSigV4ClockSkew, DefaultSigV4ClockSkew)
}

// MaxReplicationObjectBytes returns the size cap the worker enforces between
// a source GET and a target PUT.
func MaxReplicationObjectBytes() int64 {
	v := strings.TrimSpace(os.Getenv(envMaxObjectBytes))
	if v == "" {
		return DefaultMaxObjectBytes
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return DefaultMaxObjectBytes
	}
	return n
}

// ProviderCSVPath returns the operator-supplied provider-capability CSV path.
func ProviderCSVPath() string {
	return strings.TrimSpace(os.Getenv(envProviderCSVPath))
}

// SkipBootstrap reports whether PROXY_SKIP_BOOTSTRAP is set.
func SkipBootstrap() bool {
	return strings.TrimSpace(os.Getenv(envSkipBootstrap)) != ""
}

func durationFromSecondsEnv(name string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}

func envOrViper(envName, viperKey string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return viper.GetString(viperKey)
}
