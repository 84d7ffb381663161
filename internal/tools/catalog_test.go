package tools

import "testing"

func TestLoadCatalogSnapshot(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if c.Len() == 0 {
		t.Fatalf("catalog empty")
	}
	if _, ok := c.Lookup("recharts"); !ok {
		t.Fatalf("Lookup(recharts) not found")
	}
}

func TestCatalogSearchByKeyword(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	matches, total := c.Search("chart", "")
	if total == 0 {
		t.Fatalf("Search(chart) total = 0, want > 0")
	}
	for _, m := range matches {
		if m.ID == "" || m.Name == "" {
			t.Fatalf("match missing id or name: %#v", m)
		}
	}
}

func TestCatalogSearchDomainFilter(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	matches, _ := c.Search("", "music")
	if len(matches) == 0 {
		t.Fatalf("Search(domain=music) empty")
	}
	for _, m := range matches {
		if !containsFold(m.Domains, "music") {
			t.Fatalf("match %s not in music domain: %v", m.ID, m.Domains)
		}
	}
}

func TestCatalogSearchBounded(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	matches, total := c.Search("", "")
	if total != c.Len() {
		t.Fatalf("total = %d, want %d", total, c.Len())
	}
	if len(matches) > maxSearchResults {
		t.Fatalf("len(matches) = %d, want <= %d", len(matches), maxSearchResults)
	}
}

func TestCatalogSearchNoMatch(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	matches, total := c.Search("zzz-not-a-tool", "")
	if total != 0 || len(matches) != 0 {
		t.Fatalf("Search(no match) = %d results, total %d, want 0", len(matches), total)
	}
}
