package backend

import "github.com/s3gw/proxy/internal/config"

// DescriptorsFromConfig builds the set of backend Descriptors the registry
// should serve, from the endpoint mapping and the proxy-owned credentials
// config exposes. Every backend shares the same region and credentials;
// only the endpoint varies per backend id.
func DescriptorsFromConfig() []Descriptor {
	region := config.BackendRegion()
	accessKey, secretKey := config.BackendCredentials()

	endpoints := config.BackendEndpoints()
	descriptors := make([]Descriptor, 0, len(endpoints))
	for id, endpoint := range endpoints {
		descriptors = append(descriptors, Descriptor{
			ID:        id,
			Endpoint:  endpoint,
			Region:    region,
			AccessKey: accessKey,
			SecretKey: secretKey,
		})
	}
	return descriptors
}
