// Package seed loads the operator-supplied provider-capability catalogue
// CSV at bootstrap.
package seed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/s3gw/proxy/internal/store"
)

// LoadProviderCapabilities parses the CSV at path into rows ready for
// store.Store.SeedProviderCapabilities. Rows missing Zone_Code or Provider
// are skipped.
func LoadProviderCapabilities(path string) ([]store.ProviderCapability, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open provider catalogue %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read provider catalogue header: %w", err)
	}
	columnIndex := make(map[string]int, len(header))
	for i, name := range header {
		columnIndex[name] = i
	}

	var rows []store.ProviderCapability
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read provider catalogue row: %w", err)
		}

		get := func(column string) string {
			idx, ok := columnIndex[column]
			if !ok || idx >= len(record) {
				return ""
			}
			return record[idx]
		}

		zoneCode := get("Zone_Code")
		provider := get("Provider")
		if zoneCode == "" || provider == "" {
			continue
		}

		rows = append(rows, store.ProviderCapability{
			Country:      get("Country"),
			RegionCity:   get("Region/City"),
			ZoneCode:     zoneCode,
			Provider:     provider,
			S3Compatible: get("S3_Compatible"),
			ObjectLock:   get("Object_Lock"),
			Versioning:   get("Versioning"),
			ISO27001:     get("ISO_27001_GDPR"),
			VeeamReady:   get("Veeam_Ready"),
			Notes:        get("Notes"),
		})
	}
	return rows, nil
}
