package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"soulrec/internal/errmsg"
	"soulrec/internal/history"
	"soulrec/internal/playlist"
	"soulrec/internal/searcher"
)

var (
	syncDryRun bool
	syncDelay  time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync [playlist...]",
	Short: "Search and download tracks from saved playlists",
	Long: "Searches the backend for every track of the saved playlists and queues\n" +
		"the best match for download. Without arguments all playlists under the\n" +
		"recs directory are processed; arguments select playlists by file path\n" +
		"or by name.",
	RunE: func(cmd *cobra.Command, args []string) error {
		playlists, err := resolvePlaylists(args)
		if err != nil {
			return err
		}
		if len(playlists) == 0 {
			return fmt.Errorf("no playlists found under %s", cfg.Paths.RecsDir)
		}

		policy, err := cfg.Policy()
		if err != nil {
			return err
		}

		// A broken ledger should not block the downloads themselves.
		var recorder searcher.Recorder
		if !syncDryRun {
			store, err := history.Open(cfg.Paths.DBPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpHistoryOpen, err))
			} else {
				defer store.Close()
				recorder = store
			}
		}

		runner := searcher.NewRunner(searcher.New(backendClient(), policy, logger), searcher.RunnerOptions{
			Delay:    syncDelay,
			Download: !syncDryRun,
			Out:      os.Stdout,
			Recorder: recorder,
			Log:      logger,
		})
		_, err = runner.Run(cmd.Context(), playlists)
		return err
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "report matches without downloading")
	syncCmd.Flags().DurationVar(&syncDelay, "delay", time.Second, "pause between tracks")
	rootCmd.AddCommand(syncCmd)
}

// resolvePlaylists loads the requested playlists. Each argument may be a file
// path or a playlist name matched against the discovered files. An unreadable
// discovered file is skipped with a warning; an explicitly named one is fatal.
func resolvePlaylists(args []string) ([]playlist.Playlist, error) {
	paths, err := playlist.Discover(cfg.Paths.RecsDir)
	if err != nil {
		return nil, err
	}

	explicit := len(args) > 0
	selected := paths
	if explicit {
		selected = nil
		for _, arg := range args {
			if _, err := os.Stat(arg); err == nil {
				selected = append(selected, arg)
				continue
			}
			match := findByName(paths, arg)
			if match == "" {
				return nil, fmt.Errorf("playlist not found: %s", arg)
			}
			selected = append(selected, match)
		}
	}

	playlists := make([]playlist.Playlist, 0, len(selected))
	for _, path := range selected {
		p, err := playlist.Load(path)
		if err != nil {
			if explicit {
				return nil, err
			}
			fmt.Fprintln(os.Stderr, errmsg.FormatWith(errmsg.OpLoadPlaylist, filepath.Base(path), err))
			continue
		}
		playlists = append(playlists, p)
	}
	return playlists, nil
}

func findByName(paths []string, name string) string {
	want := strings.ToLower(strings.TrimSuffix(name, ".json"))
	for _, path := range paths {
		base := strings.TrimSuffix(filepath.Base(path), ".json")
		if strings.ToLower(base) == want {
			return path
		}
	}
	return ""
}
