// Package searcher implements track search against the backend: query
// strategy generation, the multi-attempt search orchestrator, best-result
// selection and the playlist batch runner.
package searcher

import (
	"fmt"

	"soulrec/internal/nicotine"
)

// Strategy names a query formulation rule.
type Strategy string

const (
	// StrategyArtistTitle searches for "artists title" as plain text.
	StrategyArtistTitle Strategy = "artist_title"
	// StrategyQuotedArtistQuotedTitle quotes artists and title separately.
	StrategyQuotedArtistQuotedTitle Strategy = "quoted_artist_quoted_title"
	// StrategyTitleArtist searches for "title artists" as plain text.
	StrategyTitleArtist Strategy = "title_artist"
	// StrategyQuotedArtistTitleIncludes searches for the quoted artists and
	// requires the title to appear in the file name or path.
	StrategyQuotedArtistTitleIncludes Strategy = "quoted_artist_title_in_includes"
	// StrategyTitleOnly searches for the bare title.
	StrategyTitleOnly Strategy = "title_only"
)

// Policy is the immutable search configuration for one search invocation.
type Policy struct {
	MinBitrate           int
	MaxFileSizeMB        float64
	MinSimilarity        float64
	SufficientSimilarity float64
	MaxAttempts          int
	MaxWaitSeconds       int
	RequireFreeSlots     bool
	AllowedExtensions    []string
	RequireTerms         []string
	ExcludeTerms         []string
	Strategies           []Strategy
}

// DefaultPolicy returns the stock search policy.
func DefaultPolicy() Policy {
	return Policy{
		MinBitrate:           192,
		MaxFileSizeMB:        50,
		MinSimilarity:        0.3,
		SufficientSimilarity: 0.8,
		MaxAttempts:          3,
		MaxWaitSeconds:       15,
		RequireFreeSlots:     true,
		AllowedExtensions:    []string{"mp3", "flac", "ogg", "m4a"},
		Strategies: []Strategy{
			StrategyArtistTitle,
			StrategyQuotedArtistQuotedTitle,
			StrategyTitleArtist,
		},
	}
}

// Validate checks the policy's numeric ranges.
func (p Policy) Validate() error {
	if p.MinSimilarity < 0 || p.MinSimilarity > 1 {
		return fmt.Errorf("min_similarity %v outside [0,1]", p.MinSimilarity)
	}
	if p.SufficientSimilarity < 0 || p.SufficientSimilarity > 1 {
		return fmt.Errorf("sufficient_similarity %v outside [0,1]", p.SufficientSimilarity)
	}
	if p.MinBitrate < 0 {
		return fmt.Errorf("min_bitrate %d is negative", p.MinBitrate)
	}
	if p.MaxFileSizeMB < 0 {
		return fmt.Errorf("max_file_size_mb %v is negative", p.MaxFileSizeMB)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts %d must be at least 1", p.MaxAttempts)
	}
	if p.MaxWaitSeconds < 1 {
		return fmt.Errorf("max_wait_seconds %d must be at least 1", p.MaxWaitSeconds)
	}
	return nil
}

// filterOptions translates the policy into client-side filter options for one
// query, with any per-query extra required substrings appended.
func (p Policy) filterOptions(extraIncludes []string) nicotine.FilterOptions {
	includes := make([]string, 0, len(p.RequireTerms)+len(extraIncludes))
	includes = append(includes, p.RequireTerms...)
	includes = append(includes, extraIncludes...)

	return nicotine.FilterOptions{
		MinBitrate:       p.MinBitrate,
		MaxFileSizeMB:    p.MaxFileSizeMB,
		MinSimilarity:    p.MinSimilarity,
		RequireFreeSlots: p.RequireFreeSlots,
		Extensions:       p.AllowedExtensions,
		Includes:         includes,
		Excludes:         p.ExcludeTerms,
		SortBy:           nicotine.SortBySimilarity,
	}
}
