// Package catalog holds the read-only car brand reference data used by the
// pronunciation analysis engine.
//
// The catalog is loaded once at startup, either from the embedded default
// dataset or from a YAML file supplied via configuration, and is immutable
// afterwards. All methods are safe for concurrent use.
//
// Iteration order is the file order of the dataset. Both the brand matcher
// and the similar-brand selector resolve score ties in favour of the earlier
// entry, so the file order is part of the catalog's observable contract.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed brands.yaml
var embeddedBrands []byte

// Brand is a single catalog entry. Phonemes is a hyphen-delimited sequence of
// short lowercase sound tokens (e.g. "t-e-s-l-a"); Pronunciation is a
// human-readable guide for display only.
type Brand struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	Phonemes      string `yaml:"phonemes" json:"phonemes"`
	Pronunciation string `yaml:"pronunciation" json:"pronunciation"`
	Description   string `yaml:"description" json:"description"`
	Country       string `yaml:"country" json:"country"`
	Founded       string `yaml:"founded" json:"founded"`
}

// PhonemeList splits the hyphen-delimited Phonemes field into its individual
// trimmed tokens. Empty tokens produced by stray hyphens are dropped.
func (b Brand) PhonemeList() []string {
	parts := strings.Split(b.Phonemes, "-")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Catalog is the immutable set of known brands.
type Catalog struct {
	brands []Brand
	byID   map[string]int
	byName map[string]int // key: lowercased name
}

// file is the YAML document layout of a brand dataset.
type file struct {
	Brands []Brand `yaml:"brands"`
}

// Load returns the catalog built from the embedded default dataset.
func Load() (*Catalog, error) {
	return parse(embeddedBrands)
}

// LoadFile reads a brand dataset from the YAML file at path. Use this to
// override the embedded dataset via configuration.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %q: %w", path, err)
	}
	c, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %q: %w", path, err)
	}
	return c, nil
}

// New builds a catalog from an explicit brand slice. Used by tests and by
// callers that assemble datasets programmatically. The slice is copied.
func New(brands []Brand) (*Catalog, error) {
	c := &Catalog{
		brands: make([]Brand, len(brands)),
		byID:   make(map[string]int, len(brands)),
		byName: make(map[string]int, len(brands)),
	}
	copy(c.brands, brands)

	var errs []error
	for i, b := range c.brands {
		prefix := fmt.Sprintf("brands[%d]", i)
		if b.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else if prev, ok := c.byID[b.ID]; ok {
			errs = append(errs, fmt.Errorf("%s.id %q is a duplicate of brands[%d]", prefix, b.ID, prev))
		} else {
			c.byID[b.ID] = i
		}
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			key := strings.ToLower(b.Name)
			if prev, ok := c.byName[key]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of brands[%d]", prefix, b.Name, prev))
			} else {
				c.byName[key] = i
			}
		}
		if len(b.PhonemeList()) == 0 {
			errs = append(errs, fmt.Errorf("%s.phonemes is required for %q", prefix, b.Name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: decode yaml: %w", err)
	}
	if len(f.Brands) == 0 {
		return nil, errors.New("catalog: dataset contains no brands")
	}
	return New(f.Brands)
}

// Brands returns a copy of the brand list in catalog order.
func (c *Catalog) Brands() []Brand {
	out := make([]Brand, len(c.brands))
	copy(out, c.brands)
	return out
}

// Len returns the number of brands in the catalog.
func (c *Catalog) Len() int { return len(c.brands) }

// ByID looks up a brand by its identifier.
func (c *Catalog) ByID(id string) (Brand, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Brand{}, false
	}
	return c.brands[i], true
}

// ByName looks up a brand by display name, case-insensitively.
func (c *Catalog) ByName(name string) (Brand, bool) {
	i, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return Brand{}, false
	}
	return c.brands[i], true
}
