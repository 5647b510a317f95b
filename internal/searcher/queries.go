package searcher

import (
	"fmt"
	"log/slog"

	"soulrec/internal/playlist"
)

// Query is one formulation to send to the backend. Includes carries extra
// substrings the results must contain beyond the policy's require terms.
type Query struct {
	Term     string
	Includes []string
	Strategy Strategy
}

// BuildQueries produces the ordered query list for a track from the
// configured strategies. Strategies needing an artist are skipped for tracks
// without one, unknown strategies are skipped with a warning, and an empty
// outcome falls back to a bare title query.
func BuildQueries(track playlist.Track, strategies []Strategy, log *slog.Logger) []Query {
	if log == nil {
		log = slog.Default()
	}
	artists := track.ArtistString()

	var queries []Query
	for _, strategy := range strategies {
		switch strategy {
		case StrategyArtistTitle:
			if artists != "" {
				queries = append(queries, Query{
					Term:     fmt.Sprintf("%s %s", artists, track.Title),
					Strategy: strategy,
				})
			}
		case StrategyQuotedArtistQuotedTitle:
			if artists != "" {
				queries = append(queries, Query{
					Term:     fmt.Sprintf("%q %q", artists, track.Title),
					Strategy: strategy,
				})
			}
		case StrategyTitleArtist:
			if artists != "" {
				queries = append(queries, Query{
					Term:     fmt.Sprintf("%s %s", track.Title, artists),
					Strategy: strategy,
				})
			}
		case StrategyQuotedArtistTitleIncludes:
			if artists != "" {
				queries = append(queries, Query{
					Term:     fmt.Sprintf("%q", artists),
					Includes: []string{track.Title},
					Strategy: strategy,
				})
			}
		case StrategyTitleOnly:
			queries = append(queries, Query{Term: track.Title, Strategy: strategy})
		default:
			log.Warn("skipping unknown search strategy", "strategy", string(strategy))
		}
	}

	if len(queries) == 0 {
		queries = append(queries, Query{Term: track.Title, Strategy: StrategyTitleOnly})
	}
	return queries
}
