package taxonomy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEmbeddedTable(t *testing.T) {
	t.Parallel()

	tax, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := tax.Count(); got != 45 {
		t.Errorf("capability count = %d, want 45", got)
	}
	if got := len(tax.Categories()); got != 9 {
		t.Errorf("category count = %d, want 9", got)
	}
	for _, cat := range tax.Categories() {
		if len(cat.Capabilities) != 5 {
			t.Errorf("category %s has %d capabilities, want 5", cat.ID, len(cat.Capabilities))
		}
	}
}

func TestLoadMissingFileFallsBackToEmbedded(t *testing.T) {
	t.Parallel()

	tax, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tax.Count() != 45 {
		t.Errorf("count = %d", tax.Count())
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("capabilities: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed file did not error")
	}
}

func TestByID(t *testing.T) {
	t.Parallel()

	tax, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	c, ok := tax.ByID("PK.OB")
	if !ok {
		t.Fatal("PK.OB not found")
	}
	if c.CategoryID != "PK" || c.Name == "" {
		t.Errorf("PK.OB = %+v", c)
	}

	if _, ok := tax.ByID("XX.YY"); ok {
		t.Error("unknown ID resolved")
	}
}

func TestAgentTypes(t *testing.T) {
	t.Parallel()

	tax, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	for _, code := range []string{"T0", "T1", "T2", "T3", "T4"} {
		d, ok := tax.AgentType(code)
		if !ok || d == "" {
			t.Errorf("agent type %s missing", code)
		}
	}
	if tax.ValidAgentType("T9") {
		t.Error("T9 accepted")
	}
}

func TestAllIsOrdered(t *testing.T) {
	t.Parallel()

	tax, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	all := tax.All()
	if len(all) != 45 {
		t.Fatalf("len = %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("order broken at %s >= %s", all[i-1].ID, all[i].ID)
		}
	}
}

func TestPromptTableMentionsEveryID(t *testing.T) {
	t.Parallel()

	tax, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	table := tax.PromptTable()
	for _, c := range tax.All() {
		if !strings.Contains(table, c.ID) {
			t.Errorf("prompt table missing %s", c.ID)
		}
	}
}

func TestRejectsMisfiledCapability(t *testing.T) {
	t.Parallel()

	doc := `
capabilities:
  PK:
    name: Perception
    capabilities:
      CG.PL:
        name: Planning
        description: wrong home
`
	if _, err := parse([]byte(doc)); err == nil {
		t.Fatal("misfiled capability accepted")
	}
}
