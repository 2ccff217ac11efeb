package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hmalhotra-labs/mindloop-audio/catalog"
	"github.com/hmalhotra-labs/mindloop-audio/playback"
)

var preloadQuality string

var preloadCmd = &cobra.Command{
	Use:   "preload <sound-id>...",
	Short: "Warm the cache for catalog sounds",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPreload,
}

func init() {
	preloadCmd.Flags().StringVar(&preloadQuality, "quality", "", "quality tier: low, medium or high")
	rootCmd.AddCommand(preloadCmd)
}

func runPreload(cmd *cobra.Command, args []string) error {
	svc, closer, err := newService(cfg, "sim", true)
	if err != nil {
		return err
	}
	defer closer()

	var opts []playback.PlayOption
	if preloadQuality != "" {
		tier, err := catalog.ParseTier(preloadQuality)
		if err != nil {
			return err
		}
		opts = append(opts, playback.WithQuality(tier))
	}

	failed := 0
	for _, res := range svc.Preload(cmd.Context(), args, opts...) {
		if res.Err != nil {
			failed++
			fmt.Printf("%-20s failed: %v\n", res.SoundID, res.Err)
			continue
		}
		fmt.Printf("%-20s %-6s %8s  %v\n", res.SoundID, res.Entry.Format,
			humanize.IBytes(uint64(res.Entry.Size)), res.Entry.Duration)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sounds failed to preload", failed, len(args))
	}
	return nil
}
