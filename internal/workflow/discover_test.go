package workflow

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/testsupport"
)

func names(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, filepath.Base(p))
	}
	return out
}

func TestSanitizeNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Pokémon (USA).3ds", "Zelda!.cia", "Zelda.cia", "notes (v1).txt", "ok.3ds"} {
		testsupport.Touch(t, filepath.Join(dir, name))
	}

	renamed, err := SanitizeNames(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("SanitizeNames: %v", err)
	}
	if renamed != 1 {
		t.Fatalf("renamed = %d, want 1", renamed)
	}
	for _, name := range []string{"Pokemon USA.3ds", "Zelda!.cia", "Zelda.cia", "notes (v1).txt", "ok.3ds"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestDiscoverSeparatesBatches(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.3ds", "a.3DS", "game.cia", "game Game-decrypted.cia", "cart-decrypted.cci", "readme.txt"} {
		testsupport.Touch(t, filepath.Join(dir, name))
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.cia"), 0o755); err != nil {
		t.Fatal(err)
	}

	inputs, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got := names(inputs.ThreeDS); !slices.Equal(got, []string{"a.3DS", "b.3ds"}) {
		t.Fatalf("3ds = %v", got)
	}
	if got := names(inputs.CIA); !slices.Equal(got, []string{"game.cia"}) {
		t.Fatalf("cia = %v", got)
	}
	if inputs.Total() != 3 {
		t.Fatalf("total = %d", inputs.Total())
	}
}

func TestConversionCandidates(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"x Game-decrypted.cia", "y TWL-decrypted.cia", "z.cia", "x Game-decrypted.cci"} {
		testsupport.Touch(t, filepath.Join(dir, name))
	}
	got, err := ConversionCandidates(dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"x Game-decrypted.cia", "y TWL-decrypted.cia"}; !slices.Equal(names(got), want) {
		t.Fatalf("candidates = %v, want %v", names(got), want)
	}
}

func TestDiscoverMissingDirectory(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error")
	}
}
