package naming

import (
	"regexp"
	"testing"
)

var validBucketName = regexp.MustCompile(`^[a-z0-9-]+$`)

func TestGenerateBackendBucketNameDeterministic(t *testing.T) {
	in := BucketHashInput{
		CustomerID:  "cust-123",
		RegionID:    "eu-central",
		LogicalName: "analytics",
		BackendID:   "frontier",
	}
	a := GenerateBackendBucketName(in)
	b := GenerateBackendBucketName(in)
	if a != b {
		t.Fatalf("expected deterministic output, got %q and %q", a, b)
	}
	if !regexp.MustCompile(`^s3gw-`).MatchString(a) {
		t.Fatalf("expected s3gw- prefix, got %q", a)
	}

	in.CollisionCounter = 1
	c := GenerateBackendBucketName(in)
	if c == a {
		t.Fatalf("expected collision counter to change output")
	}
}

func TestGenerateBackendBucketNameS3Compliant(t *testing.T) {
	inputs := []BucketHashInput{
		{CustomerID: "tenant-1", RegionID: "fi", LogicalName: "docs", BackendID: "primary"},
		{CustomerID: "c", RegionID: "r", LogicalName: "l", BackendID: ""},
		{CustomerID: "very-long-customer-id-value", RegionID: "region", LogicalName: "logical-name", BackendID: "backend_with_underscores"},
	}
	for _, in := range inputs {
		name := GenerateBackendBucketName(in)
		if len(name) < 3 || len(name) > 63 {
			t.Errorf("name %q length %d out of [3,63]", name, len(name))
		}
		if !validBucketName.MatchString(name) {
			t.Errorf("name %q contains invalid characters", name)
		}
		if name[0] == '-' || name[len(name)-1] == '-' {
			t.Errorf("name %q starts or ends with hyphen", name)
		}
	}
}

func TestEmptyBackendIDFallsBackToLiteral(t *testing.T) {
	if backendSuffix("") != "backend" {
		t.Fatalf("expected literal 'backend' suffix for empty backend id")
	}
}

func TestMapBackends(t *testing.T) {
	mapping := MapBackends("cust-1", "eu", "docs", []string{"primary", "secondary"})
	if len(mapping) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(mapping))
	}
	if mapping["primary"] == mapping["secondary"] {
		t.Fatalf("expected distinct names per backend")
	}
}
