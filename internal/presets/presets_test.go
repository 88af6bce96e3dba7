package presets_test

import (
	"os"
	"path/filepath"
	"testing"

	"burnloop/internal/catalog"
	"burnloop/internal/presets"
)

func TestStoreSeedsDefaultsWhenFileMissing(t *testing.T) {
	store := presets.NewStore(filepath.Join(t.TempDir(), "presets.json"), nil)

	names := store.Names()
	if len(names) != 3 {
		t.Fatalf("names = %v, want three defaults", names)
	}
	p, ok := store.Get("Preset 1")
	if !ok {
		t.Fatal("Preset 1 missing")
	}
	if p.X != 50.0 || p.Y != 50.0 || p.Font != 5.0 || p.Offset != 26.0 || p.Color != "Silver" {
		t.Fatalf("Preset 1 = %+v", p)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	store := presets.NewStore(path, nil)

	if err := store.Put("Badge", presets.Params{X: 10, Y: 20, Font: 4, Offset: 12, Color: "brass"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	reloaded := presets.NewStore(path, nil)
	p, ok := reloaded.Get("Badge")
	if !ok {
		t.Fatal("Badge missing after reload")
	}
	if p.Color != "Brass" {
		t.Fatalf("color = %q, want normalized %q", p.Color, "Brass")
	}
	if p.X != 10 || p.Y != 20 || p.Font != 4 || p.Offset != 12 {
		t.Fatalf("params = %+v", p)
	}
}

func TestStoreBackfillsMissingOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	content := `{"Preset 1": {"x": 1, "y": 2, "font": 3, "color": "silver"}, "Custom": {"x": 4, "y": 5, "font": 6, "color": "bogus"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store := presets.NewStore(path, nil)
	p, _ := store.Get("Preset 1")
	if p.Offset != 26.0 {
		t.Fatalf("Preset 1 offset = %v, want default 26", p.Offset)
	}
	custom, _ := store.Get("Custom")
	if custom.Offset != 26.0 {
		t.Fatalf("Custom offset = %v, want fallback 26", custom.Offset)
	}
	if custom.Color != "Silver" {
		t.Fatalf("unknown color normalized to %q, want Silver", custom.Color)
	}
}

func TestStoreCorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store := presets.NewStore(path, nil)
	if _, ok := store.Get("Preset 2"); !ok {
		t.Fatal("defaults not in effect after corrupt load")
	}
}

func TestStoreRemove(t *testing.T) {
	store := presets.NewStore(filepath.Join(t.TempDir(), "presets.json"), nil)
	if err := store.Remove("Preset 3"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove("Preset 3"); err == nil {
		t.Fatal("second remove succeeded")
	}
}

func TestParamsStyle(t *testing.T) {
	p := presets.Params{X: 1, Y: 2, Font: 3, Offset: 4, Color: "plastic"}
	st := p.Style()
	if st.Color != catalog.Plastic {
		t.Fatalf("style color = %v, want Plastic", st.Color)
	}
	if st.FontSize != 3 || st.Offset != 4 {
		t.Fatalf("style = %+v", st)
	}
}

func TestStencilRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stencils.json")
	store := presets.NewStencilStore(path, nil)

	if err := store.Put("Valve Tag", "Preset 2"); err != nil {
		t.Fatalf("put: %v", err)
	}

	reloaded := presets.NewStencilStore(path, nil)
	preset, ok := reloaded.Get("Valve Tag")
	if !ok || preset != "Preset 2" {
		t.Fatalf("Get = (%q, %v), want Preset 2", preset, ok)
	}
}

func TestStencilLegacyListUpgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stencils.json")
	if err := os.WriteFile(path, []byte(`["Old Tag", "Older Tag"]`), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store := presets.NewStencilStore(path, nil)
	preset, ok := store.Get("Old Tag")
	if !ok || preset != "Preset 1" {
		t.Fatalf("legacy entry = (%q, %v), want Preset 1", preset, ok)
	}
	if len(store.Names()) != 2 {
		t.Fatalf("names = %v", store.Names())
	}
}

func TestStencilRemoveMissing(t *testing.T) {
	store := presets.NewStencilStore(filepath.Join(t.TempDir(), "stencils.json"), nil)
	if err := store.Remove("ghost"); err == nil {
		t.Fatal("remove of missing stencil succeeded")
	}
}
