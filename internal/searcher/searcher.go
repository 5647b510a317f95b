package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"soulrec/internal/nicotine"
	"soulrec/internal/playlist"
)

// Client is the backend surface the searcher needs.
type Client interface {
	Health(ctx context.Context) error
	SearchAndFilter(ctx context.Context, term string, waitSeconds int, opts nicotine.FilterOptions) ([]nicotine.SearchResult, error)
	Download(ctx context.Context, r nicotine.SearchResult) (string, error)
}

// Searcher runs multi-strategy track searches against the backend.
type Searcher struct {
	client Client
	policy Policy
	log    *slog.Logger
}

// New creates a Searcher. The policy must already be validated.
func New(client Client, policy Policy, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	return &Searcher{client: client, policy: policy, log: log}
}

// Policy returns the searcher's policy.
func (s *Searcher) Policy() Policy { return s.policy }

// SearchTrack runs the fallback query strategies for one track and returns
// the deduplicated results sorted by similarity descending. Failed attempts
// are logged and skipped; an error is returned only when every attempt
// failed or the context was cancelled.
func (s *Searcher) SearchTrack(ctx context.Context, track playlist.Track) ([]nicotine.SearchResult, error) {
	queries := BuildQueries(track, s.policy.Strategies, s.log)
	if len(queries) > s.policy.MaxAttempts {
		queries = queries[:s.policy.MaxAttempts]
	}
	s.log.Info("searching for track", "track", track.String(), "attempts", len(queries))

	var pool []nicotine.SearchResult
	var lastErr error
	failures := 0

	for attempt, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.log.Debug("search attempt", "attempt", attempt+1, "query", q.Term, "strategy", string(q.Strategy))
		results, err := s.client.SearchAndFilter(ctx, q.Term, s.policy.MaxWaitSeconds, s.policy.filterOptions(q.Includes))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("search attempt failed", "attempt", attempt+1, "query", q.Term, "error", err)
			lastErr = err
			failures++
			continue
		}
		if len(results) == 0 {
			s.log.Debug("no results", "query", q.Term)
			continue
		}

		pool = append(pool, results...)
		if s.hasSufficient(results) {
			s.log.Info("sufficient match found, stopping early",
				"attempt", attempt+1, "threshold", s.policy.SufficientSimilarity)
			break
		}
	}

	if failures == len(queries) && lastErr != nil {
		return nil, fmt.Errorf("all %d search attempts failed: %w", failures, lastErr)
	}

	unique := dedupe(pool)
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Similarity > unique[j].Similarity
	})
	s.log.Info("track search complete", "track", track.String(), "results", len(unique))
	return unique, nil
}

func (s *Searcher) hasSufficient(results []nicotine.SearchResult) bool {
	for _, r := range results {
		if r.Similarity >= s.policy.SufficientSimilarity {
			return true
		}
	}
	return false
}

// dedupe keeps the first occurrence per (owner, virtual path).
func dedupe(results []nicotine.SearchResult) []nicotine.SearchResult {
	type key struct{ user, path string }
	seen := make(map[key]bool, len(results))
	var unique []nicotine.SearchResult
	for _, r := range results {
		k := key{r.User, r.FilePath}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, r)
	}
	return unique
}

// SelectBest picks the result to download. Results without a known bitrate
// are dropped when the policy sets a minimum; free slots are a soft
// preference. Among the remainder the highest bitrate wins, with similarity
// breaking ties.
func SelectBest(results []nicotine.SearchResult, policy Policy) (nicotine.SearchResult, bool) {
	var candidates []nicotine.SearchResult
	for _, r := range results {
		if policy.MinBitrate > 0 && (r.Bitrate == nil || *r.Bitrate < policy.MinBitrate) {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return nicotine.SearchResult{}, false
	}

	if policy.RequireFreeSlots {
		var free []nicotine.SearchResult
		for _, r := range candidates {
			if r.HasFreeSlots {
				free = append(free, r)
			}
		}
		if len(free) > 0 {
			candidates = free
		}
	}

	best := candidates[0]
	for _, r := range candidates[1:] {
		if r.BitrateOrZero() > best.BitrateOrZero() ||
			(r.BitrateOrZero() == best.BitrateOrZero() && r.Similarity > best.Similarity) {
			best = r
		}
	}
	return best, true
}

// DownloadBest searches for a track and queues the best result. The second
// return value is false when nothing suitable was found.
func (s *Searcher) DownloadBest(ctx context.Context, track playlist.Track) (nicotine.SearchResult, bool, error) {
	results, err := s.SearchTrack(ctx, track)
	if err != nil {
		return nicotine.SearchResult{}, false, err
	}
	best, ok := SelectBest(results, s.policy)
	if !ok {
		return nicotine.SearchResult{}, false, nil
	}
	msg, err := s.client.Download(ctx, best)
	if err != nil {
		return best, true, err
	}
	s.log.Info("download queued", "file", best.FileName, "user", best.User, "response", msg)
	return best, true, nil
}
