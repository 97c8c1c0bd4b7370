package item

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk layout of a rebalanced catalog.
type catalogFile struct {
	Items []Definition `yaml:"items"`
}

// LoadCatalogYAML decodes and validates a catalog. Entry order is kept as display order.
func LoadCatalogYAML(r io.Reader) ([]Definition, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("%w: catalog has no items", ErrInvalidDefinition)
	}
	if err := Validate(file.Items); err != nil {
		return nil, err
	}
	return file.Items, nil
}

// LoadCatalogFile reads a YAML catalog from path.
func LoadCatalogFile(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalogYAML(f)
}
