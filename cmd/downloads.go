package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"soulrec/internal/errmsg"
	"soulrec/internal/history"
	"soulrec/internal/nicotine"
)

var (
	waitTimeout  time.Duration
	waitInterval time.Duration
	waitCleanup  bool
)

var downloadsCmd = &cobra.Command{
	Use:   "downloads",
	Short: "Inspect and manage backend downloads",
}

var downloadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transfers known to the backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := backendClient()
		transfers, err := client.Downloads(cmd.Context())
		if err != nil {
			return err
		}
		if len(transfers) == 0 {
			fmt.Println("no downloads")
			return nil
		}

		if err := syncHistory(cmd, transfers); err != nil {
			fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpHistorySync, err))
		}

		for _, d := range transfers {
			status := d.Status
			if d.IsActive() {
				status = color.YellowString("%s %.0f%%", d.Status, d.Progress())
			}
			fmt.Printf("%-10s %s (%s) from %s\n",
				status, d.VirtualPath, humanize.Bytes(uint64(d.Size)), d.Username)
		}
		return nil
	},
}

var downloadsWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Block until active transfers finish",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := backendClient()
		remaining, err := client.WaitForDownloads(cmd.Context(), nicotine.WaitOptions{
			Timeout:  waitTimeout,
			Interval: waitInterval,
			Cleanup:  waitCleanup,
		})
		for _, d := range remaining {
			fmt.Printf("%s %s from %s\n", color.YellowString("still active:"), d.VirtualPath, d.Username)
		}
		if err != nil {
			return err
		}

		transfers, terr := client.Downloads(cmd.Context())
		if terr == nil {
			if herr := syncHistory(cmd, transfers); herr != nil {
				fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpHistorySync, herr))
			}
		}
		fmt.Println(color.GreenString("all downloads finished"))
		return nil
	},
}

var downloadsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove finished and cancelled transfers from the backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		msg, err := backendClient().Clean(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

func init() {
	downloadsWaitCmd.Flags().DurationVar(&waitTimeout, "timeout", 30*time.Minute, "give up after this long (0 waits forever)")
	downloadsWaitCmd.Flags().DurationVar(&waitInterval, "interval", 5*time.Second, "poll interval")
	downloadsWaitCmd.Flags().BoolVar(&waitCleanup, "clean", false, "clean finished transfers afterwards")
	downloadsCmd.AddCommand(downloadsListCmd, downloadsWaitCmd, downloadsCleanCmd)
	rootCmd.AddCommand(downloadsCmd)
}

// syncHistory updates the local ledger from the backend transfer list.
func syncHistory(cmd *cobra.Command, transfers []nicotine.DownloadInfo) error {
	store, err := history.Open(cfg.Paths.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.UpdateFromBackend(cmd.Context(), transfers)
}
