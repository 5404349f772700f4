// Package taxonomy loads the AI agent capability reference table: 9
// categories of 5 capabilities each, plus the T0-T4 agent type ladder. The
// table ships embedded and can be overridden by a YAML file on disk, which
// is hot-reloaded when it changes.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/ai_agent_cpt.yaml
var embeddedTable []byte

// Capability is one cell of the table, flattened with its category.
type Capability struct {
	ID           string `yaml:"-" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description"`
	CategoryID   string `yaml:"-" json:"category_id"`
	CategoryName string `yaml:"-" json:"category_name"`
}

// Category groups five capabilities under a two-letter code.
type Category struct {
	ID           string
	Name         string
	Capabilities []Capability
}

// Taxonomy is the loaded table with flat lookup by capability ID.
type Taxonomy struct {
	Version    string
	AgentTypes map[string]string // T0-T4 -> description
	categories []Category
	byID       map[string]Capability
}

// yamlDoc mirrors the file layout.
type yamlDoc struct {
	Header struct {
		Title         string            `yaml:"title"`
		Version       string            `yaml:"version"`
		CategoryTypes map[string]string `yaml:"category_types"`
	} `yaml:"header"`
	Capabilities map[string]struct {
		Name         string                `yaml:"name"`
		Capabilities map[string]Capability `yaml:"capabilities"`
	} `yaml:"capabilities"`
}

// Load reads the table from path, falling back to the embedded copy when
// the file does not exist. A present but malformed file is an error rather
// than a silent fallback.
func Load(path string) (*Taxonomy, error) {
	data := embeddedTable
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = b
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
		}
	}
	return parse(data)
}

func parse(data []byte) (*Taxonomy, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if len(doc.Capabilities) == 0 {
		return nil, fmt.Errorf("parse taxonomy: no capability categories")
	}

	t := &Taxonomy{
		Version:    doc.Header.Version,
		AgentTypes: doc.Header.CategoryTypes,
		byID:       make(map[string]Capability),
	}

	catIDs := make([]string, 0, len(doc.Capabilities))
	for id := range doc.Capabilities {
		catIDs = append(catIDs, id)
	}
	sort.Strings(catIDs)

	for _, catID := range catIDs {
		raw := doc.Capabilities[catID]
		cat := Category{ID: catID, Name: raw.Name}

		capIDs := make([]string, 0, len(raw.Capabilities))
		for id := range raw.Capabilities {
			capIDs = append(capIDs, id)
		}
		sort.Strings(capIDs)

		for _, capID := range capIDs {
			c := raw.Capabilities[capID]
			c.ID = capID
			c.CategoryID = catID
			c.CategoryName = raw.Name
			if !strings.HasPrefix(capID, catID+".") {
				return nil, fmt.Errorf("parse taxonomy: capability %q filed under category %q", capID, catID)
			}
			cat.Capabilities = append(cat.Capabilities, c)
			t.byID[capID] = c
		}
		t.categories = append(t.categories, cat)
	}

	return t, nil
}

// ByID looks up one capability ("PK.OB").
func (t *Taxonomy) ByID(id string) (Capability, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Categories returns the table in category order.
func (t *Taxonomy) Categories() []Category {
	return t.categories
}

// All returns every capability sorted by ID.
func (t *Taxonomy) All() []Capability {
	out := make([]Capability, 0, len(t.byID))
	for _, cat := range t.categories {
		out = append(out, cat.Capabilities...)
	}
	return out
}

// Count reports the number of capabilities in the table.
func (t *Taxonomy) Count() int {
	return len(t.byID)
}

// AgentType returns the description for a type code ("T2").
func (t *Taxonomy) AgentType(code string) (string, bool) {
	d, ok := t.AgentTypes[code]
	return d, ok
}

// ValidAgentType reports whether code is one of the defined T-levels.
func (t *Taxonomy) ValidAgentType(code string) bool {
	_, ok := t.AgentTypes[code]
	return ok
}

// PromptTable renders the whole table as compact text for inclusion in an
// LLM prompt.
func (t *Taxonomy) PromptTable() string {
	var b strings.Builder
	for _, cat := range t.categories {
		fmt.Fprintf(&b, "%s (%s):\n", cat.Name, cat.ID)
		for _, c := range cat.Capabilities {
			fmt.Fprintf(&b, "  %s %s: %s\n", c.ID, c.Name, c.Description)
		}
	}
	return b.String()
}
