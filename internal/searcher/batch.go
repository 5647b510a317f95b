package searcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"soulrec/internal/nicotine"
	"soulrec/internal/playlist"
)

// Stats accumulates batch counters across playlists.
type Stats struct {
	TotalTracks    int
	Downloaded     int
	FailedSearches int
	APIErrors      int
}

// SuccessRate returns the queued fraction as a percentage.
func (s Stats) SuccessRate() float64 {
	if s.TotalTracks == 0 {
		return 0
	}
	return float64(s.Downloaded) / float64(s.TotalTracks) * 100
}

func (s *Stats) add(o Stats) {
	s.TotalTracks += o.TotalTracks
	s.Downloaded += o.Downloaded
	s.FailedSearches += o.FailedSearches
	s.APIErrors += o.APIErrors
}

// Recorder persists queued downloads. Implemented by the history store.
type Recorder interface {
	Record(ctx context.Context, playlistTitle string, track playlist.Track, result nicotine.SearchResult) error
}

// RunnerOptions configure a batch run.
type RunnerOptions struct {
	// Delay is the pause between tracks. Zero means the default one second.
	Delay time.Duration
	// Download queues the best result per track; false only reports matches.
	Download bool
	Out      io.Writer
	Recorder Recorder
	Log      *slog.Logger
}

// Runner drives track searches over whole playlists.
type Runner struct {
	searcher *Searcher
	delay    time.Duration
	download bool
	out      io.Writer
	recorder Recorder
	log      *slog.Logger
	stats    Stats
}

// NewRunner creates a batch runner on top of a Searcher.
func NewRunner(s *Searcher, opts RunnerOptions) *Runner {
	if opts.Delay == 0 {
		opts.Delay = time.Second
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Runner{
		searcher: s,
		delay:    opts.Delay,
		download: opts.Download,
		out:      opts.Out,
		recorder: opts.Recorder,
		log:      opts.Log,
	}
}

// Run processes every playlist in order. A track failing never stops the
// batch; only context cancellation or an unreachable backend at the start
// does. The accumulated stats are returned either way.
func (r *Runner) Run(ctx context.Context, playlists []playlist.Playlist) (Stats, error) {
	if err := r.searcher.client.Health(ctx); err != nil {
		return r.stats, fmt.Errorf("backend pre-flight check: %w", err)
	}

	for i, p := range playlists {
		if err := r.runPlaylist(ctx, p); err != nil {
			r.printFinalSummary()
			return r.stats, err
		}
		if i < len(playlists)-1 {
			fmt.Fprintln(r.out)
		}
	}

	r.printFinalSummary()
	return r.stats, nil
}

func (r *Runner) runPlaylist(ctx context.Context, p playlist.Playlist) error {
	fmt.Fprintf(r.out, "Processing playlist: %s\n", color.CyanString(p.String()))
	fmt.Fprintln(r.out, strings.Repeat("-", 60))

	local := Stats{}
	for i, track := range p.Tracks {
		if err := ctx.Err(); err != nil {
			r.stats.add(local)
			return err
		}

		fmt.Fprintf(r.out, "[%2d/%d] %s\n", i+1, len(p.Tracks), track)
		local.TotalTracks++
		r.processTrack(ctx, p.Title, track, &local)

		if i < len(p.Tracks)-1 {
			select {
			case <-ctx.Done():
				r.stats.add(local)
				return ctx.Err()
			case <-time.After(r.delay):
			}
		}
	}

	r.stats.add(local)
	fmt.Fprintf(r.out, "\nPlaylist %q complete: %s queued, %s not found, %s errors\n",
		p.Title,
		color.GreenString("%d", local.Downloaded),
		color.YellowString("%d", local.FailedSearches),
		color.RedString("%d", local.APIErrors))
	return nil
}

func (r *Runner) processTrack(ctx context.Context, playlistTitle string, track playlist.Track, local *Stats) {
	results, err := r.searcher.SearchTrack(ctx, track)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(r.out, "        %s %v\n", color.RedString("search error:"), err)
		local.APIErrors++
		return
	}

	best, ok := SelectBest(results, r.searcher.policy)
	if !ok {
		fmt.Fprintf(r.out, "        %s\n", color.YellowString("no suitable results"))
		local.FailedSearches++
		return
	}

	if !r.download {
		fmt.Fprintf(r.out, "        %s %s\n", color.GreenString("found:"), describeResult(best))
		return
	}

	if _, err := r.searcher.client.Download(ctx, best); err != nil {
		fmt.Fprintf(r.out, "        %s %v\n", color.RedString("download failed:"), err)
		local.APIErrors++
		return
	}

	fmt.Fprintf(r.out, "        %s %s\n", color.GreenString("queued:"), describeResult(best))
	local.Downloaded++

	if r.recorder != nil {
		if err := r.recorder.Record(ctx, playlistTitle, track, best); err != nil {
			r.log.Warn("recording download failed", "track", track.String(), "error", err)
		}
	}
}

func describeResult(r nicotine.SearchResult) string {
	bitrate := "unknown bitrate"
	if r.Bitrate != nil {
		bitrate = fmt.Sprintf("%d kbps", *r.Bitrate)
	}
	return fmt.Sprintf("%s (%s, %s) from %s",
		r.FileName, bitrate, humanize.Bytes(uint64(r.FileSize)), r.User)
}

func (r *Runner) printFinalSummary() {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintf(r.out, "Total tracks processed: %d\n", r.stats.TotalTracks)
	fmt.Fprintf(r.out, "Queued downloads:       %s\n", color.GreenString("%d", r.stats.Downloaded))
	fmt.Fprintf(r.out, "Failed searches:        %s\n", color.YellowString("%d", r.stats.FailedSearches))
	fmt.Fprintf(r.out, "API errors:             %s\n", color.RedString("%d", r.stats.APIErrors))
	if r.stats.TotalTracks > 0 {
		fmt.Fprintf(r.out, "Success rate:           %.1f%%\n", r.stats.SuccessRate())
	}
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
}
