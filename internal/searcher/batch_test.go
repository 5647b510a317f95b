package searcher

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"soulrec/internal/nicotine"
	"soulrec/internal/playlist"
)

type fakeRecorder struct {
	records []string
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, playlistTitle string, track playlist.Track, _ nicotine.SearchResult) error {
	f.records = append(f.records, playlistTitle+"/"+track.String())
	return f.err
}

func newTestRunner(client *fakeClient, policy Policy, recorder Recorder, download bool) (*Runner, *bytes.Buffer) {
	out := &bytes.Buffer{}
	r := NewRunner(New(client, policy, nil), RunnerOptions{
		Delay:    time.Millisecond,
		Download: download,
		Out:      out,
		Recorder: recorder,
	})
	return r, out
}

func singleTrackPlaylist() playlist.Playlist {
	return playlist.Playlist{
		Title:   "weekly jams",
		Creator: "listenbrainz",
		Tracks:  []playlist.Track{{Title: "Time", Artists: []string{"Pink Floyd"}}},
	}
}

func TestRunPreflightFailureIsFatal(t *testing.T) {
	client := &fakeClient{healthErr: nicotine.ErrUnavailable}
	r, _ := newTestRunner(client, testPolicy(), nil, true)

	_, err := r.Run(context.Background(), []playlist.Playlist{singleTrackPlaylist()})
	if !errors.Is(err, nicotine.ErrUnavailable) {
		t.Errorf("Run() error = %v, want ErrUnavailable", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("searches issued despite failed pre-flight: %v", client.calls)
	}
}

func TestRunQueuesAndRecords(t *testing.T) {
	client := &fakeClient{responses: map[string][]nicotine.SearchResult{
		"Pink Floyd Time": {{
			User: "alice", FilePath: "music\\time.flac", FileName: "time.flac",
			FileSize: 30 << 20, Bitrate: intPtr(320), Similarity: 0.9, HasFreeSlots: true,
		}},
	}}
	recorder := &fakeRecorder{}
	r, out := newTestRunner(client, testPolicy(), recorder, true)

	stats, err := r.Run(context.Background(), []playlist.Playlist{singleTrackPlaylist()})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats.TotalTracks != 1 || stats.Downloaded != 1 || stats.FailedSearches != 0 || stats.APIErrors != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(client.downloads) != 1 || client.downloads[0].User != "alice" {
		t.Errorf("downloads = %+v", client.downloads)
	}
	if len(recorder.records) != 1 || recorder.records[0] != "weekly jams/Pink Floyd - Time" {
		t.Errorf("records = %v", recorder.records)
	}
	if !strings.Contains(out.String(), "time.flac") {
		t.Errorf("output missing queued file:\n%s", out.String())
	}
}

func TestRunSelectorRejectionCountsAsFailedSearch(t *testing.T) {
	// Results exist but all fail the bitrate floor, so the selector comes up
	// empty. That is a failed search, not an API error.
	client := &fakeClient{responses: map[string][]nicotine.SearchResult{
		"Pink Floyd Time": {{User: "a", FilePath: "1", Bitrate: intPtr(128), Similarity: 0.9}},
		"Time Pink Floyd": {{User: "a", FilePath: "1", Bitrate: intPtr(128), Similarity: 0.9}},
		"Time":            {{User: "a", FilePath: "1", Bitrate: intPtr(128), Similarity: 0.9}},
	}}
	policy := testPolicy()
	policy.MinBitrate = 192
	r, _ := newTestRunner(client, policy, nil, true)

	stats, err := r.Run(context.Background(), []playlist.Playlist{singleTrackPlaylist()})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats.FailedSearches != 1 || stats.APIErrors != 0 {
		t.Errorf("stats = %+v, want 1 failed search and 0 api errors", stats)
	}
}

func TestRunDownloadFailureCountsAsAPIError(t *testing.T) {
	client := &fakeClient{
		responses: map[string][]nicotine.SearchResult{
			"Pink Floyd Time": {{User: "a", FilePath: "1", Bitrate: intPtr(320), Similarity: 0.9}},
		},
		downloadErr: nicotine.ErrDownloadRejected,
	}
	r, _ := newTestRunner(client, testPolicy(), nil, true)

	stats, err := r.Run(context.Background(), []playlist.Playlist{singleTrackPlaylist()})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats.APIErrors != 1 || stats.Downloaded != 0 {
		t.Errorf("stats = %+v, want 1 api error", stats)
	}
}

func TestRunOneTrackFailureDoesNotAbortBatch(t *testing.T) {
	good := nicotine.SearchResult{User: "a", FilePath: "1", Bitrate: intPtr(320), Similarity: 0.9}
	client := &fakeClient{responses: map[string][]nicotine.SearchResult{
		"Pink Floyd Time": {good},
		"David Bowie Heroes": {{
			User: "b", FilePath: "2", Bitrate: intPtr(320), Similarity: 0.9,
		}},
	}}
	p := playlist.Playlist{
		Title: "mixed",
		Tracks: []playlist.Track{
			{Title: "Nothing Here", Artists: []string{"Nobody"}},
			{Title: "Time", Artists: []string{"Pink Floyd"}},
			{Title: "Heroes", Artists: []string{"David Bowie"}},
		},
	}
	r, _ := newTestRunner(client, testPolicy(), nil, true)

	stats, err := r.Run(context.Background(), []playlist.Playlist{p})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats.TotalTracks != 3 || stats.Downloaded != 2 || stats.FailedSearches != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunDryRunDownloadsNothing(t *testing.T) {
	client := &fakeClient{responses: map[string][]nicotine.SearchResult{
		"Pink Floyd Time": {{User: "a", FilePath: "1", Bitrate: intPtr(320), Similarity: 0.9}},
	}}
	r, out := newTestRunner(client, testPolicy(), nil, false)

	stats, err := r.Run(context.Background(), []playlist.Playlist{singleTrackPlaylist()})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(client.downloads) != 0 {
		t.Errorf("downloads queued in dry run: %+v", client.downloads)
	}
	if stats.Downloaded != 0 {
		t.Errorf("stats = %+v, want no downloads counted", stats)
	}
	if !strings.Contains(out.String(), "found:") {
		t.Errorf("dry run output missing found line:\n%s", out.String())
	}
}

func TestRunCancelledBetweenTracks(t *testing.T) {
	client := &fakeClient{}
	p := playlist.Playlist{
		Title: "long",
		Tracks: []playlist.Track{
			{Title: "One", Artists: []string{"A"}},
			{Title: "Two", Artists: []string{"B"}},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	r, _ := newTestRunner(client, testPolicy(), nil, true)
	r.delay = time.Hour
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	stats, err := r.Run(ctx, []playlist.Playlist{p})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if stats.TotalTracks != 1 {
		t.Errorf("processed %d tracks before cancel, want 1", stats.TotalTracks)
	}
}

func TestStatsSuccessRate(t *testing.T) {
	s := Stats{TotalTracks: 4, Downloaded: 3}
	if got := s.SuccessRate(); got != 75 {
		t.Errorf("SuccessRate() = %v, want 75", got)
	}
	if got := (Stats{}).SuccessRate(); got != 0 {
		t.Errorf("SuccessRate() on empty = %v, want 0", got)
	}
}
