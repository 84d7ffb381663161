package tools

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed tool_catalog.json
var catalogSnapshot []byte

// CatalogEntry is one installable tool/library in the studio registry.
type CatalogEntry struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	Domains           []string `json:"domains"`
	IntegrationPrompt string   `json:"integrationPrompt,omitempty"`
}

// Catalog is the searchable tool registry snapshot. Read-only after load.
type Catalog struct {
	entries []CatalogEntry
	byID    map[string]CatalogEntry
}

// maxSearchResults bounds search_tools responses; the model only ever needs a
// shortlist.
const maxSearchResults = 10

// LoadCatalog parses the embedded snapshot.
func LoadCatalog() (*Catalog, error) {
	return parseCatalog(catalogSnapshot)
}

func parseCatalog(raw []byte) (*Catalog, error) {
	var entries []CatalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse tool catalog: %w", err)
	}
	byID := make(map[string]CatalogEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	return &Catalog{entries: entries, byID: byID}, nil
}

// Lookup returns the entry for an exact id.
func (c *Catalog) Lookup(id string) (CatalogEntry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Len reports the catalog size.
func (c *Catalog) Len() int { return len(c.entries) }

// IDs returns up to limit entry ids, in snapshot order.
func (c *Catalog) IDs(limit int) []string {
	if limit <= 0 || limit > len(c.entries) {
		limit = len(c.entries)
	}
	out := make([]string, 0, limit)
	for _, e := range c.entries[:limit] {
		out = append(out, e.ID)
	}
	return out
}

// Search filters by keyword (id, name, description substring, case folded)
// and optional domain, returning at most maxSearchResults matches plus the
// total match count.
func (c *Catalog) Search(query, domain string) ([]CatalogEntry, int) {
	query = strings.ToLower(strings.TrimSpace(query))
	domain = strings.TrimSpace(domain)

	var matches []CatalogEntry
	for _, e := range c.entries {
		if domain != "" && !containsFold(e.Domains, domain) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(e.ID), query) &&
			!strings.Contains(strings.ToLower(e.Name), query) &&
			!strings.Contains(strings.ToLower(e.Description), query) {
			continue
		}
		matches = append(matches, e)
	}

	total := len(matches)
	if total > maxSearchResults {
		matches = matches[:maxSearchResults]
	}
	return matches, total
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
