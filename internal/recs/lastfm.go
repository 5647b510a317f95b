package recs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"soulrec/internal/lastfm"
	"soulrec/internal/playlist"
)

// DefaultMaxTracks caps the number of tracks taken from a station feed.
const DefaultMaxTracks = 50

// LastfmSource fetches the user's recommended station playlist from the
// Last.fm player endpoint, plus similar-artist playlists through the API.
type LastfmSource struct {
	username   string
	api        *lastfm.Client
	httpClient *http.Client
	stationURL string
	maxTracks  int
	log        *slog.Logger
}

// NewLastfm creates a Last.fm source for the given user.
func NewLastfm(username, apiKey, apiSecret string, log *slog.Logger) *LastfmSource {
	if log == nil {
		log = slog.Default()
	}
	return &LastfmSource{
		username:   username,
		api:        lastfm.New(apiKey, apiSecret),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		stationURL: fmt.Sprintf("https://www.last.fm/player/station/user/%s/recommended", username),
		maxTracks:  DefaultMaxTracks,
		log:        log,
	}
}

func (s *LastfmSource) Name() string { return "lastfm" }

// stationTrack matches the player station JSON. Field names carry a leading
// underscore on the wire.
type stationTrack struct {
	Name    string `json:"_name"`
	Artists []struct {
		Name string `json:"_name"`
	} `json:"artists"`
	Playlinks []struct {
		URL string `json:"url"`
	} `json:"_playlinks"`
}

type stationResponse struct {
	Playlist []stationTrack `json:"playlist"`
}

// Fetch downloads the recommended station feed and converts it to a single
// playlist.
func (s *LastfmSource) Fetch(ctx context.Context) ([]playlist.Playlist, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.stationURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create station request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch lastfm station: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch lastfm station: unexpected status %d", resp.StatusCode)
	}

	var station stationResponse
	if err := json.NewDecoder(resp.Body).Decode(&station); err != nil {
		return nil, fmt.Errorf("parse lastfm station: %w", err)
	}

	feed := station.Playlist
	if s.maxTracks > 0 && len(feed) > s.maxTracks {
		feed = feed[:s.maxTracks]
	}

	tracks := make([]playlist.Track, 0, len(feed))
	for _, st := range feed {
		tracks = append(tracks, convertStationTrack(st))
	}
	s.log.Info("fetched lastfm recommendations", "user", s.username, "tracks", len(tracks))

	return []playlist.Playlist{{
		Title:   "lastfm recommended",
		Creator: "lastfm",
		Links:   playlist.Links{URL: s.stationURL},
		Tracks:  tracks,
	}}, nil
}

// convertStationTrack splits combined artist credits ("A, B") into separate
// artists and keeps the first play link.
func convertStationTrack(st stationTrack) playlist.Track {
	var artists []string
	for _, a := range st.Artists {
		if a.Name == "" {
			continue
		}
		for _, name := range strings.Split(a.Name, ", ") {
			if name = strings.TrimSpace(name); name != "" {
				artists = append(artists, name)
			}
		}
	}

	var url string
	if len(st.Playlinks) > 0 {
		url = st.Playlinks[0].URL
	}

	return playlist.Track{
		Title:   st.Name,
		Artists: artists,
		Links:   playlist.Links{URL: url},
	}
}

// SimilarArtistPlaylist builds a playlist from the top tracks of artists
// similar to seed.
func (s *LastfmSource) SimilarArtistPlaylist(seed string, artistLimit, tracksPerArtist int) (playlist.Playlist, error) {
	similar, err := s.api.GetSimilarArtists(seed, artistLimit)
	if err != nil {
		return playlist.Playlist{}, err
	}

	var tracks []playlist.Track
	for _, a := range similar {
		top, err := s.api.GetArtistTopTracks(a.Name, tracksPerArtist)
		if err != nil {
			s.log.Warn("fetching top tracks failed", "artist", a.Name, "error", err)
			continue
		}
		for _, t := range top {
			tracks = append(tracks, playlist.Track{
				Title:   t.Name,
				Artists: []string{a.Name},
				Links:   playlist.Links{URL: t.URL, MBID: t.MBID},
			})
		}
	}

	return playlist.Playlist{
		Title:   fmt.Sprintf("similar to %s", strings.ToLower(seed)),
		Creator: "lastfm",
		Tracks:  tracks,
	}, nil
}
