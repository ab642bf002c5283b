package eligibility

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
)

//go:embed catalog.yaml
var catalogRaw []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

type SchemeID string

// Scheme is a loan or subsidy program with its admission thresholds.
type Scheme struct {
	ID          SchemeID `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	MinHectares float64  `yaml:"min_hectares" json:"min_hectares"`
	Occupations []string `yaml:"occupations" json:"occupations,omitempty"`
}

type catalogFile struct {
	Schemes []Scheme `yaml:"schemes"`
}

// Catalog is immutable after load and safe for concurrent use.
type Catalog struct {
	schemes []Scheme
	byID    map[SchemeID]int
}

// Default returns the embedded scheme catalog. It panics if the embedded file is broken.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := LoadCatalog(catalogRaw)
		if err != nil {
			panic(fmt.Sprintf("eligibility: embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func LoadCatalog(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewCatalog(file.Schemes)
}

func NewCatalog(schemes []Scheme) (*Catalog, error) {
	c := &Catalog{
		schemes: make([]Scheme, 0, len(schemes)),
		byID:    make(map[SchemeID]int, len(schemes)),
	}
	for i, s := range schemes {
		s.ID = SchemeID(strings.TrimSpace(string(s.ID)))
		s.Name = strings.TrimSpace(s.Name)
		if s.ID == "" {
			return nil, fmt.Errorf("scheme #%d: id is required", i)
		}
		if s.Name == "" {
			return nil, fmt.Errorf("scheme %s: name is required", s.ID)
		}
		if s.MinHectares < 0 {
			return nil, fmt.Errorf("scheme %s: min_hectares must be >= 0", s.ID)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("scheme %s: duplicate id", s.ID)
		}
		s.Occupations = append([]string(nil), s.Occupations...)
		c.byID[s.ID] = len(c.schemes)
		c.schemes = append(c.schemes, s)
	}
	return c, nil
}

func (c *Catalog) Schemes() []Scheme {
	out := make([]Scheme, len(c.schemes))
	copy(out, c.schemes)
	return out
}

func (c *Catalog) Lookup(id SchemeID) (Scheme, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Scheme{}, false
	}
	return c.schemes[idx], true
}

// Names resolves ids to display names, skipping unknown ids.
func (c *Catalog) Names(ids []SchemeID) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := c.Lookup(id); ok {
			names = append(names, s.Name)
		}
	}
	return names
}
