package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hmalhotra-labs/mindloop-audio/cache"
)

var downloadCmd = &cobra.Command{
	Use:   "download <sound-id> <url>",
	Short: "Fetch a sound file into the download directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	svc, closer, err := newService(cfg, "sim", false)
	if err != nil {
		return err
	}
	defer closer()

	task, err := svc.Download(cmd.Context(), args[0], args[1], func(t cache.Task) {
		if t.Total > 0 {
			fmt.Printf("\r%3d%% %10s", t.Progress, humanize.IBytes(uint64(t.Downloaded)))
		} else {
			fmt.Printf("\r%10s", humanize.IBytes(uint64(t.Downloaded)))
		}
	})
	fmt.Println()
	if err != nil {
		return err
	}
	fmt.Printf("saved %s (%s)\n", task.Location, humanize.IBytes(uint64(task.Downloaded)))
	return nil
}
