package recs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"soulrec/internal/playlist"
)

// JSPF extension keys used by ListenBrainz playlists.
const (
	jspfPlaylistExtension = "https://musicbrainz.org/doc/jspf#playlist"
	jspfTrackExtension    = "https://musicbrainz.org/doc/jspf#track"
)

// ListenbrainzSource fetches the playlists ListenBrainz generates for a user
// (weekly jams, weekly exploration and friends).
type ListenbrainzSource struct {
	username    string
	token       string
	baseURL     string
	sourcePatch string
	httpClient  *http.Client
	log         *slog.Logger
}

// NewListenbrainz creates a ListenBrainz source. sourcePatch optionally
// restricts fetching to one generator, e.g. "weekly-exploration".
func NewListenbrainz(username, token, sourcePatch string, log *slog.Logger) *ListenbrainzSource {
	if log == nil {
		log = slog.Default()
	}
	return &ListenbrainzSource{
		username:    username,
		token:       token,
		baseURL:     "https://api.listenbrainz.org/1",
		sourcePatch: sourcePatch,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		log:         log,
	}
}

func (s *ListenbrainzSource) Name() string { return "listenbrainz" }

type jspfPlaylist struct {
	Title      string `json:"title"`
	Creator    string `json:"creator"`
	Identifier string `json:"identifier"`
	Extension  map[string]struct {
		AdditionalMetadata struct {
			AlgorithmMetadata struct {
				SourcePatch string `json:"source_patch"`
			} `json:"algorithm_metadata"`
		} `json:"additional_metadata"`
	} `json:"extension"`
	Track []jspfTrack `json:"track"`
}

type jspfTrack struct {
	Title      string     `json:"title"`
	Creator    string     `json:"creator"`
	Identifier stringList `json:"identifier"`
	Extension  map[string]struct {
		AdditionalMetadata struct {
			Artists []struct {
				ArtistCreditName string `json:"artist_credit_name"`
				ArtistMBID       string `json:"artist_mbid"`
				JoinPhrase       string `json:"join_phrase"`
			} `json:"artists"`
		} `json:"additional_metadata"`
	} `json:"extension"`
}

// stringList tolerates the identifier field being either a string or a list.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = []string{single}
	return nil
}

// Fetch lists the user's createdfor playlists and resolves each one to its
// full track list. Playlists that fail to resolve are logged and skipped.
func (s *ListenbrainzSource) Fetch(ctx context.Context) ([]playlist.Playlist, error) {
	listing, err := s.fetchCreatedFor(ctx)
	if err != nil {
		return nil, err
	}

	var playlists []playlist.Playlist
	for _, meta := range listing {
		if s.sourcePatch != "" && meta.sourcePatch() != s.sourcePatch {
			continue
		}
		mbid := lastPathSegment(meta.Identifier, "playlist/")
		if mbid == "" {
			s.log.Warn("playlist without usable identifier", "identifier", meta.Identifier)
			continue
		}

		full, err := s.fetchPlaylist(ctx, mbid)
		if err != nil {
			s.log.Warn("resolving playlist failed", "mbid", mbid, "error", err)
			continue
		}
		playlists = append(playlists, convertJSPF(*full))
	}

	s.log.Info("fetched listenbrainz recommendations", "user", s.username, "playlists", len(playlists))
	return playlists, nil
}

func (p jspfPlaylist) sourcePatch() string {
	return p.Extension[jspfPlaylistExtension].AdditionalMetadata.AlgorithmMetadata.SourcePatch
}

func (s *ListenbrainzSource) fetchCreatedFor(ctx context.Context) ([]jspfPlaylist, error) {
	var payload struct {
		Playlists []struct {
			Playlist jspfPlaylist `json:"playlist"`
		} `json:"playlists"`
	}
	url := fmt.Sprintf("%s/user/%s/playlists/createdfor", s.baseURL, s.username)
	if err := s.get(ctx, url, &payload); err != nil {
		return nil, fmt.Errorf("fetch createdfor playlists: %w", err)
	}

	listing := make([]jspfPlaylist, 0, len(payload.Playlists))
	for _, entry := range payload.Playlists {
		listing = append(listing, entry.Playlist)
	}
	return listing, nil
}

func (s *ListenbrainzSource) fetchPlaylist(ctx context.Context, mbid string) (*jspfPlaylist, error) {
	var payload struct {
		Playlist jspfPlaylist `json:"playlist"`
	}
	url := fmt.Sprintf("%s/playlist/%s", s.baseURL, mbid)
	if err := s.get(ctx, url, &payload); err != nil {
		return nil, err
	}
	return &payload.Playlist, nil
}

func (s *ListenbrainzSource) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Token "+s.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response from %s: %w", url, err)
	}
	return nil
}

// convertJSPF maps a ListenBrainz JSPF playlist to the local model. The title
// is replaced by "<creator> <source_patch>" when the generator is known.
func convertJSPF(p jspfPlaylist) playlist.Playlist {
	title := p.Title
	if patch := p.sourcePatch(); patch != "" {
		title = fmt.Sprintf("%s %s", p.Creator, patch)
	}

	tracks := make([]playlist.Track, 0, len(p.Track))
	for _, t := range p.Track {
		tracks = append(tracks, convertJSPFTrack(t))
	}

	return playlist.Playlist{
		Title:   title,
		Creator: p.Creator,
		Links: playlist.Links{
			MBID: lastPathSegment(p.Identifier, "playlist/"),
			URL:  p.Identifier,
		},
		Tracks: tracks,
	}
}

func convertJSPFTrack(t jspfTrack) playlist.Track {
	var artists []string
	for _, a := range t.Extension[jspfTrackExtension].AdditionalMetadata.Artists {
		if a.ArtistCreditName != "" {
			artists = append(artists, a.ArtistCreditName)
		}
	}
	if len(artists) == 0 && t.Creator != "" {
		artists = []string{t.Creator}
	}

	var mbid string
	if len(t.Identifier) > 0 {
		mbid = lastPathSegment(t.Identifier[0], "recording/")
	}

	return playlist.Track{
		Title:   t.Title,
		Artists: artists,
		Links:   playlist.Links{MBID: mbid},
	}
}

// lastPathSegment extracts the trailing path element of url when it contains
// marker, e.g. the MBID from ".../recording/<mbid>".
func lastPathSegment(url, marker string) string {
	if !strings.Contains(url, marker) {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}
