package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"soulrec/internal/playlist"
	"soulrec/internal/searcher"
)

var getCmd = &cobra.Command{
	Use:   `get "Artist - Title"`,
	Short: "Search and download a single track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		track, err := parseTrackArg(args[0])
		if err != nil {
			return err
		}

		policy, err := cfg.Policy()
		if err != nil {
			return err
		}

		client := backendClient()
		if err := client.Health(cmd.Context()); err != nil {
			return err
		}

		s := searcher.New(client, policy, logger)
		best, found, err := s.DownloadBest(cmd.Context(), track)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no suitable results for %s", track)
		}

		fmt.Printf("%s %s from %s\n", color.GreenString("queued:"), best.FileName, best.User)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}

// parseTrackArg splits "Artist - Title" on the first separator. A bare title
// without separator is searched as title only.
func parseTrackArg(arg string) (playlist.Track, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return playlist.Track{}, fmt.Errorf("empty track argument")
	}

	artist, title, found := strings.Cut(arg, " - ")
	if !found {
		return playlist.Track{Title: arg}, nil
	}
	return playlist.Track{
		Title:   strings.TrimSpace(title),
		Artists: []string{strings.TrimSpace(artist)},
	}, nil
}
