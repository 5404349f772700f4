package taxonomy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeTable(t *testing.T, path, version string) {
	t.Helper()
	doc := `header:
  version: "` + version + `"
  category_types:
    T0: static
capabilities:
  PK:
    name: Perception
    capabilities:
      PK.OB:
        name: Observation
        description: watch things
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpt.yaml")
	writeTable(t, path, "1")

	reloaded := make(chan *Taxonomy, 1)
	w, err := NewWatcher(path, func(tax *Taxonomy) {
		select {
		case reloaded <- tax:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := w.Current().Version; got != "1" {
		t.Fatalf("initial version = %q", got)
	}

	writeTable(t, path, "2")

	select {
	case tax := <-reloaded:
		if tax.Version != "2" {
			t.Errorf("reloaded version = %q", tax.Version)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload never fired")
	}

	if got := w.Current().Version; got != "2" {
		t.Errorf("Current version = %q after reload", got)
	}
}

func TestWatcherKeepsTableOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpt.yaml")
	writeTable(t, path, "1")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(path, []byte("capabilities: ["), 0o644); err != nil {
		t.Fatal(err)
	}

	// Give the debounce window time to elapse; the broken file must not
	// replace the loaded table.
	time.Sleep(time.Second)
	if got := w.Current().Version; got != "1" {
		t.Errorf("version = %q, want previous table kept", got)
	}
}
