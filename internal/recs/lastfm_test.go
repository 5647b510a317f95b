package recs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const stationFixture = `{
	"playlist": [
		{
			"_name": "Time",
			"artists": [{"_name": "Pink Floyd"}],
			"_playlinks": [{"url": "https://www.youtube.com/watch?v=abc"}]
		},
		{
			"_name": "Under Pressure",
			"artists": [{"_name": "Queen, David Bowie"}],
			"_playlinks": []
		},
		{
			"_name": "Nameless",
			"artists": []
		}
	]
}`

func newStationSource(t *testing.T, handler http.Handler) *LastfmSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewLastfm("alice", "key", "secret", nil)
	s.stationURL = srv.URL
	s.httpClient = srv.Client()
	return s
}

func TestLastfmFetch(t *testing.T) {
	s := newStationSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stationFixture))
	}))

	playlists, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, playlists, 1)

	p := playlists[0]
	require.Equal(t, "lastfm recommended", p.Title)
	require.Equal(t, "lastfm", p.Creator)
	require.Len(t, p.Tracks, 3)

	require.Equal(t, "Time", p.Tracks[0].Title)
	require.Equal(t, []string{"Pink Floyd"}, p.Tracks[0].Artists)
	require.Equal(t, "https://www.youtube.com/watch?v=abc", p.Tracks[0].Links.URL)

	// Combined credits are split into individual artists.
	require.Equal(t, []string{"Queen", "David Bowie"}, p.Tracks[1].Artists)
	require.Empty(t, p.Tracks[1].Links.URL)

	require.Empty(t, p.Tracks[2].Artists)
}

func TestLastfmFetchLimitsTracks(t *testing.T) {
	s := newStationSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stationFixture))
	}))
	s.maxTracks = 1

	playlists, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, playlists[0].Tracks, 1)
}

func TestLastfmFetchServerError(t *testing.T) {
	s := newStationSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))

	_, err := s.Fetch(context.Background())
	require.Error(t, err)
}

func TestLastfmFetchMalformedBody(t *testing.T) {
	s := newStationSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>login required</html>"))
	}))

	_, err := s.Fetch(context.Background())
	require.Error(t, err)
}
