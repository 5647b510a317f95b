// Package recs fetches recommendation playlists from streaming-history
// services.
package recs

import (
	"context"

	"soulrec/internal/playlist"
)

// Source produces recommendation playlists from one service.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]playlist.Playlist, error)
}

// SaveAll persists every playlist under dir and returns the written paths.
func SaveAll(playlists []playlist.Playlist, dir string) ([]string, error) {
	var paths []string
	for _, p := range playlists {
		path, err := p.Save(dir)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
