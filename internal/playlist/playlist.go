// Package playlist provides the track and playlist model shared by the
// recommendation sources and the search engine, plus JSON persistence.
package playlist

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Links holds optional external identifiers for a playlist or track.
type Links struct {
	MBID string `json:"mbid,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Track is a single recommended track. Artists are kept in credited order.
type Track struct {
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Links   Links    `json:"links"`
}

// ArtistString returns all credited artists joined for display and querying.
func (t Track) ArtistString() string {
	return strings.Join(t.Artists, ", ")
}

func (t Track) String() string {
	if len(t.Artists) == 0 {
		return fmt.Sprintf("Unknown Artist - %s", t.Title)
	}
	return fmt.Sprintf("%s - %s", t.ArtistString(), t.Title)
}

// Playlist is a named collection of tracks from one recommendation source.
type Playlist struct {
	Title   string  `json:"title"`
	Creator string  `json:"creator"`
	Links   Links   `json:"links"`
	Tracks  []Track `json:"tracks"`
}

func (p Playlist) String() string {
	return fmt.Sprintf("%s by %s (%d tracks)", p.Title, p.Creator, len(p.Tracks))
}

// FileName derives a filesystem-friendly name for the playlist.
func (p Playlist) FileName() string {
	name := strings.ToLower(p.Title)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, ".", "")
	name = strings.ReplaceAll(name, string(filepath.Separator), "_")
	return name + ".json"
}

// Save writes the playlist as JSON under dir/<date>/<name>.json and returns
// the written path.
func (p Playlist) Save(dir string) (string, error) {
	dated := filepath.Join(dir, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(dated, 0o755); err != nil {
		return "", fmt.Errorf("create playlist dir: %w", err)
	}

	path := filepath.Join(dated, p.FileName())
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode playlist: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write playlist: %w", err)
	}
	return path, nil
}

// Load reads a single playlist JSON file.
func Load(path string) (Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Playlist{}, fmt.Errorf("read playlist: %w", err)
	}

	var p Playlist
	if err := json.Unmarshal(data, &p); err != nil {
		return Playlist{}, fmt.Errorf("parse playlist %s: %w", filepath.Base(path), err)
	}
	if p.Title == "" {
		p.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Discover returns all playlist JSON files under dir, sorted by path.
// A missing directory is not an error; it just yields no playlists.
func Discover(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan playlists: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}
