package backend

// Descriptor is the static configuration for one physical S3-compatible
// backend: its endpoint, region, and the proxy-owned credentials used to
// talk to it. The registry holds one Descriptor per backend id.
type Descriptor struct {
	ID        string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}
