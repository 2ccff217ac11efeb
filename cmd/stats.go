package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hmalhotra-labs/mindloop-audio/cache"
)

var statsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the cache budget and recent download history",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsLimit, "limit", 20, "number of history rows")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	dir := cfg.Cache.DownloadDir
	if dir == "" {
		dir = cache.DefaultDownloadDir()
	}
	fmt.Printf("cache budget %s, downloads in %s\n",
		humanize.IBytes(uint64(cfg.Cache.MaxSizeBytes())), dir)

	journal, err := cache.OpenJournal("")
	if err != nil {
		return err
	}
	defer journal.Close()

	entries, err := journal.History(statsLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no downloads recorded")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-20s %-11s %8s",
			e.EndedAt.Format("2006-01-02 15:04"), e.SoundID, e.Status,
			humanize.IBytes(uint64(e.Bytes)))
		if e.Err != "" {
			line += "  " + e.Err
		}
		fmt.Println(line)
	}
	return nil
}
