// Package backend manages per-backend ObjectClients: one S3-compatible
// client per physical backend id, built once from config.BackendEndpoints
// and reused for every data-plane and replication request.
package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/s3gw/proxy/internal/gwerr"
)

// Registry holds one ObjectClient per configured backend id, built lazily
// on first use and memoized for the life of the process.
type Registry struct {
	mu          sync.Mutex
	descriptors map[string]Descriptor
	clients     map[string]ObjectClient
}

// NewRegistry builds a Registry from the given descriptors, keyed by
// Descriptor.ID.
func NewRegistry(descriptors []Descriptor) *Registry {
	byID := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		byID[d.ID] = d
	}
	return &Registry{
		descriptors: byID,
		clients:     make(map[string]ObjectClient),
	}
}

// Client returns the memoized ObjectClient for backendID, constructing it
// on first request.
func (r *Registry) Client(ctx context.Context, backendID string) (ObjectClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[backendID]; ok {
		return c, nil
	}

	desc, ok := r.descriptors[backendID]
	if !ok {
		return nil, fmt.Errorf("backend %q is not configured: %w", backendID, gwerr.ErrMisconfigured)
	}
	if desc.Endpoint == "" || desc.AccessKey == "" || desc.SecretKey == "" {
		return nil, fmt.Errorf("backend %q is missing endpoint or credentials: %w", backendID, gwerr.ErrMisconfigured)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(desc.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(desc.AccessKey, desc.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load SDK config for backend %q: %w", backendID, err)
	}

	sdkClient := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(desc.Endpoint)
		o.UsePathStyle = true
	})

	client := &s3ObjectClient{client: sdkClient}
	r.clients[backendID] = client
	return client, nil
}

// Descriptor returns the static configuration for backendID.
func (r *Registry) Descriptor(backendID string) (Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.descriptors[backendID]
	return d, ok
}

// BackendIDs returns every configured backend id, in no particular order.
func (r *Registry) BackendIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.descriptors))
	for id := range r.descriptors {
		ids = append(ids, id)
	}
	return ids
}
