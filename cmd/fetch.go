package cmd

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/arunsworld/nursery"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"soulrec/internal/errmsg"
	"soulrec/internal/recs"
)

var sourcePatch string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch recommendation playlists and save them locally",
}

var fetchLastfmCmd = &cobra.Command{
	Use:   "lastfm",
	Short: "Fetch the Last.fm recommended station playlist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return fetchAndSave(cmd.Context(), lastfmSource())
	},
}

var fetchListenbrainzCmd = &cobra.Command{
	Use:   "listenbrainz",
	Short: "Fetch the ListenBrainz createdfor playlists",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return fetchAndSave(cmd.Context(), listenbrainzSource())
	},
}

var fetchAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Fetch from every configured source",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// One source failing should not discard what the other fetched, so
		// failures are reported per source and only a full wipeout is fatal.
		var failed atomic.Int32
		job := func(source recs.Source) nursery.ConcurrentJob {
			return func(ctx context.Context, _ chan error) {
				if err := fetchAndSave(ctx, source); err != nil {
					fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpFetchRecs, err))
					failed.Add(1)
				}
			}
		}

		var jobs []nursery.ConcurrentJob
		if cfg.HasLastfm() {
			jobs = append(jobs, job(lastfmSource()))
		}
		if cfg.HasListenbrainz() {
			jobs = append(jobs, job(listenbrainzSource()))
		}
		if len(jobs) == 0 {
			return fmt.Errorf("no recommendation source configured")
		}
		if err := nursery.RunConcurrentlyWithContext(cmd.Context(), jobs...); err != nil {
			return err
		}
		if int(failed.Load()) == len(jobs) {
			return fmt.Errorf("every recommendation source failed")
		}
		return nil
	},
}

var (
	similarArtists  int
	similarPerTrack int
)

var fetchSimilarCmd = &cobra.Command{
	Use:   "similar <artist>",
	Short: "Build a playlist from artists similar to the given one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := recs.NewLastfm(cfg.Lastfm.Username, cfg.Lastfm.APIKey, cfg.Lastfm.APISecret, logger)
		p, err := source.SimilarArtistPlaylist(args[0], similarArtists, similarPerTrack)
		if err != nil {
			return err
		}
		if len(p.Tracks) == 0 {
			return fmt.Errorf("no similar tracks found for %s", args[0])
		}

		path, err := p.Save(cfg.Paths.RecsDir)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s (%d tracks)\n", color.GreenString("saved:"), path, len(p.Tracks))
		return nil
	},
}

func init() {
	fetchCmd.PersistentFlags().StringVar(&sourcePatch, "source-patch", "",
		"only fetch ListenBrainz playlists from this generator (e.g. weekly-exploration)")
	fetchSimilarCmd.Flags().IntVar(&similarArtists, "artists", 10, "number of similar artists")
	fetchSimilarCmd.Flags().IntVar(&similarPerTrack, "tracks", 3, "top tracks per artist")
	fetchCmd.AddCommand(fetchLastfmCmd, fetchListenbrainzCmd, fetchAllCmd, fetchSimilarCmd)
	rootCmd.AddCommand(fetchCmd)
}

func lastfmSource() recs.Source {
	return recs.NewLastfm(cfg.Lastfm.Username, cfg.Lastfm.APIKey, cfg.Lastfm.APISecret, logger)
}

func listenbrainzSource() recs.Source {
	return recs.NewListenbrainz(cfg.Listenbrainz.Username, cfg.Listenbrainz.UserToken, sourcePatch, logger)
}

func fetchAndSave(ctx context.Context, source recs.Source) error {
	playlists, err := source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", source.Name(), err)
	}
	if len(playlists) == 0 {
		fmt.Printf("%s: no playlists found\n", source.Name())
		return nil
	}

	paths, err := recs.SaveAll(playlists, cfg.Paths.RecsDir)
	if err != nil {
		return fmt.Errorf("save %s playlists: %w", source.Name(), err)
	}
	for i, path := range paths {
		fmt.Printf("%s %s (%d tracks)\n", color.GreenString("saved:"), path, len(playlists[i].Tracks))
	}
	return nil
}
