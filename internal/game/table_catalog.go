package game

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed configs/tables.yaml
var defaultTablesYAML []byte

// LocalTablesPath is checked when no explicit catalog path is given.
const LocalTablesPath = "configs/tables.yaml"

// Catalog holds one geometry per table variant. It is read-only after
// loading and safe to share between sessions.
type Catalog struct {
	tables map[TableVariant]TableGeometry
	source string
}

type catalogFile struct {
	Tables map[string]yaml.Node `yaml:"tables"`
}

// DefaultCatalog returns the built-in tables. It panics only if the
// embedded file is broken, which the tests guard against.
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(nil, "embedded")
	if err != nil {
		panic(fmt.Sprintf("embedded table catalog: %v", err))
	}
	return c
}

// LoadCatalog loads the table catalog. Search order: path (if set, must
// exist), then ./configs/tables.yaml, then the embedded defaults. A file
// only needs the fields it changes; everything else keeps the built-in value.
func LoadCatalog(path string) (*Catalog, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read table catalog: %w", err)
		}
		return parseCatalog(data, path)
	}

	data, err := os.ReadFile(LocalTablesPath)
	switch {
	case err == nil:
		abs, _ := filepath.Abs(LocalTablesPath)
		return parseCatalog(data, abs)
	case errors.Is(err, fs.ErrNotExist):
		return parseCatalog(nil, "embedded")
	default:
		return nil, fmt.Errorf("read table catalog: %w", err)
	}
}

func parseCatalog(override []byte, source string) (*Catalog, error) {
	var base catalogFile
	if err := yaml.Unmarshal(defaultTablesYAML, &base); err != nil {
		return nil, fmt.Errorf("parse embedded tables: %w", err)
	}

	configs := make(map[TableVariant]TableConfig, len(Variants))
	for name, node := range base.Tables {
		v, err := ParseVariant(name)
		if err != nil {
			return nil, err
		}
		var cfg TableConfig
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		configs[v] = cfg
	}

	if len(override) > 0 {
		var file catalogFile
		if err := yaml.Unmarshal(override, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
		for name, node := range file.Tables {
			v, err := ParseVariant(name)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", source, err)
			}
			// decoding onto the built-in value keeps fields the file omits
			cfg := configs[v]
			if err := node.Decode(&cfg); err != nil {
				return nil, fmt.Errorf("%s: table %s: %w", source, name, err)
			}
			configs[v] = cfg
		}
	}

	c := &Catalog{tables: make(map[TableVariant]TableGeometry, len(Variants)), source: source}
	for _, v := range Variants {
		cfg, ok := configs[v]
		if !ok {
			return nil, fmt.Errorf("table %s missing from catalog", v)
		}
		geom, err := NewGeometry(v, cfg)
		if err != nil {
			return nil, err
		}
		c.tables[v] = geom
	}
	return c, nil
}

// Geometry returns the geometry for a variant.
func (c *Catalog) Geometry(v TableVariant) (TableGeometry, error) {
	g, ok := c.tables[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, v)
	}
	return g, nil
}

// Source names where the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

// TableInfo is the public description of one table.
type TableInfo struct {
	Variant  TableVariant `json:"variant"`
	Config   TableConfig  `json:"config"`
	Pockets  []Pocket     `json:"pockets"`
	CueSpawn Vec2         `json:"cue_spawn"`
}

// Describe returns every table in menu order.
func (c *Catalog) Describe() []TableInfo {
	out := make([]TableInfo, 0, len(Variants))
	for _, v := range Variants {
		g := c.tables[v]
		out = append(out, TableInfo{
			Variant:  v,
			Config:   g.Config(),
			Pockets:  g.Pockets(),
			CueSpawn: g.CueSpawn(),
		})
	}
	return out
}
