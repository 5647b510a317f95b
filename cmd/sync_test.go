package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"soulrec/internal/config"
)

func writePlaylistFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolvePlaylistsSkipsUnreadableDiscoveredFile(t *testing.T) {
	dir := t.TempDir()
	writePlaylistFile(t, dir, "weekly_jams.json",
		`{"title": "weekly jams", "creator": "listenbrainz", "tracks": []}`)
	writePlaylistFile(t, dir, "broken.json", `{not json`)

	old := cfg
	cfg = &config.Config{Paths: config.PathsConfig{RecsDir: dir}}
	t.Cleanup(func() { cfg = old })

	playlists, err := resolvePlaylists(nil)
	if err != nil {
		t.Fatalf("resolvePlaylists() error: %v", err)
	}
	if len(playlists) != 1 || playlists[0].Title != "weekly jams" {
		t.Errorf("playlists = %+v, want only weekly jams", playlists)
	}
}

func TestResolvePlaylistsExplicitUnreadableFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	bad := writePlaylistFile(t, dir, "broken.json", `{not json`)

	old := cfg
	cfg = &config.Config{Paths: config.PathsConfig{RecsDir: dir}}
	t.Cleanup(func() { cfg = old })

	if _, err := resolvePlaylists([]string{bad}); err == nil {
		t.Error("resolvePlaylists() should fail for an explicitly named broken file")
	}
}

func TestResolvePlaylistsByName(t *testing.T) {
	dir := t.TempDir()
	writePlaylistFile(t, dir, "weekly_jams.json",
		`{"title": "weekly jams", "creator": "listenbrainz", "tracks": []}`)

	old := cfg
	cfg = &config.Config{Paths: config.PathsConfig{RecsDir: dir}}
	t.Cleanup(func() { cfg = old })

	playlists, err := resolvePlaylists([]string{"Weekly_Jams"})
	if err != nil {
		t.Fatalf("resolvePlaylists() error: %v", err)
	}
	if len(playlists) != 1 {
		t.Fatalf("got %d playlists, want 1", len(playlists))
	}

	if _, err := resolvePlaylists([]string{"nope"}); err == nil {
		t.Error("resolvePlaylists() should fail for an unknown name")
	}
}
