package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(BibdbPath(root), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg := &Config{
		GrobidURL:          "http://localhost:8070",
		CrossrefMailto:     "owner@example.org",
		DefaultProjectArea: "imaging",
		OwnerAliases:       []string{"Kazerouni, A. S."},
	}
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.GrobidURL != cfg.GrobidURL || got.CrossrefMailto != cfg.CrossrefMailto {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.DefaultProjectArea != "imaging" {
		t.Errorf("DefaultProjectArea = %q", got.DefaultProjectArea)
	}
	if len(got.OwnerAliases) != 1 || got.OwnerAliases[0] != "Kazerouni, A. S." {
		t.Errorf("OwnerAliases = %v", got.OwnerAliases)
	}
}

func TestLoad_MissingFileIsDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GrobidURL != "" || cfg.DefaultProjectArea != "" {
		t.Errorf("expected zero config, got %+v", cfg)
	}
}

func TestFindRepository(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(BibdbPath(root), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	found, err := FindRepository(nested)
	if err != nil {
		t.Fatalf("FindRepository: %v", err)
	}
	// Resolve symlinks before comparing; t.TempDir may sit behind one.
	wantResolved, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(found)
	if gotResolved != wantResolved {
		t.Errorf("FindRepository = %q, want %q", found, root)
	}

	if _, err := FindRepository(t.TempDir()); err == nil {
		t.Error("expected error outside a repository")
	}
}

func TestResolve_GlobalFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	ResetGlobalConfigCache()
	t.Cleanup(ResetGlobalConfigCache)

	if err := os.MkdirAll(filepath.Join(dir, GlobalConfigDir), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	global := "grobid_url: http://global:8070\ncrossref_mailto: global@example.org\n"
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigDir, GlobalConfigFile), []byte(global), 0644); err != nil {
		t.Fatalf("write global config: %v", err)
	}

	cfg := Resolve(&Config{CrossrefMailto: "repo@example.org"})
	if cfg.CrossrefMailto != "repo@example.org" {
		t.Errorf("CrossrefMailto = %q, repo value must win", cfg.CrossrefMailto)
	}
	if cfg.GrobidURL != "http://global:8070" {
		t.Errorf("GrobidURL = %q, want global fallback", cfg.GrobidURL)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/papers"); got != filepath.Join(home, "papers") {
		t.Errorf("ExpandPath(~/papers) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q", got)
	}
}
