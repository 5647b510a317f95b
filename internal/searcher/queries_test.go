package searcher

import (
	"testing"

	"soulrec/internal/playlist"
)

func TestBuildQueries(t *testing.T) {
	track := playlist.Track{Title: "Time", Artists: []string{"Pink Floyd"}}
	duet := playlist.Track{Title: "Under Pressure", Artists: []string{"Queen", "David Bowie"}}
	noArtist := playlist.Track{Title: "Untitled"}

	tests := []struct {
		name       string
		track      playlist.Track
		strategies []Strategy
		wantTerms  []string
	}{
		{
			name:  "all strategies in configured order",
			track: track,
			strategies: []Strategy{
				StrategyArtistTitle,
				StrategyQuotedArtistQuotedTitle,
				StrategyTitleArtist,
				StrategyQuotedArtistTitleIncludes,
				StrategyTitleOnly,
			},
			wantTerms: []string{
				"Pink Floyd Time",
				`"Pink Floyd" "Time"`,
				"Time Pink Floyd",
				`"Pink Floyd"`,
				"Time",
			},
		},
		{
			name:       "multiple artists joined with comma",
			track:      duet,
			strategies: []Strategy{StrategyArtistTitle},
			wantTerms:  []string{"Queen, David Bowie Under Pressure"},
		},
		{
			name:       "artist strategies skipped without artists",
			track:      noArtist,
			strategies: []Strategy{StrategyArtistTitle, StrategyTitleOnly},
			wantTerms:  []string{"Untitled"},
		},
		{
			name:       "empty outcome falls back to title",
			track:      noArtist,
			strategies: []Strategy{StrategyArtistTitle, StrategyQuotedArtistQuotedTitle},
			wantTerms:  []string{"Untitled"},
		},
		{
			name:       "unknown strategy skipped",
			track:      track,
			strategies: []Strategy{"album_title", StrategyTitleOnly},
			wantTerms:  []string{"Time"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queries := BuildQueries(tt.track, tt.strategies, nil)
			if len(queries) != len(tt.wantTerms) {
				t.Fatalf("got %d queries, want %d: %+v", len(queries), len(tt.wantTerms), queries)
			}
			for i, want := range tt.wantTerms {
				if queries[i].Term != want {
					t.Errorf("query %d = %q, want %q", i, queries[i].Term, want)
				}
			}
		})
	}
}

func TestBuildQueriesTitleInIncludes(t *testing.T) {
	track := playlist.Track{Title: "Time", Artists: []string{"Pink Floyd"}}
	queries := BuildQueries(track, []Strategy{StrategyQuotedArtistTitleIncludes}, nil)
	if len(queries) != 1 {
		t.Fatalf("got %d queries, want 1", len(queries))
	}
	q := queries[0]
	if q.Term != `"Pink Floyd"` {
		t.Errorf("Term = %q", q.Term)
	}
	if len(q.Includes) != 1 || q.Includes[0] != "Time" {
		t.Errorf("Includes = %v, want [Time]", q.Includes)
	}
}
