package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmalhotra-labs/mindloop-audio/catalog"
	"github.com/hmalhotra-labs/mindloop-audio/playback"
)

var (
	playFor     time.Duration
	playBackend string
	playVolume  float64
	playQuality string
	playNoCache bool
)

var playCmd = &cobra.Command{
	Use:   "play <sound-id>...",
	Short: "Mix one or more catalog sounds",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().DurationVar(&playFor, "for", 10*time.Second, "how long to keep playing")
	playCmd.Flags().StringVar(&playBackend, "backend", "beep", "audio backend: beep or sim")
	playCmd.Flags().Float64Var(&playVolume, "volume", -1, "volume 0.0-1.0 (default: per-sound catalog volume)")
	playCmd.Flags().StringVar(&playQuality, "quality", "", "quality tier: low, medium or high")
	playCmd.Flags().BoolVar(&playNoCache, "no-cache", false, "load without caching")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	svc, closer, err := newService(cfg, playBackend, true)
	if err != nil {
		return err
	}
	defer closer()

	var opts []playback.PlayOption
	if playVolume >= 0 {
		opts = append(opts, playback.WithVolume(playVolume))
	}
	if playQuality != "" {
		tier, err := catalog.ParseTier(playQuality)
		if err != nil {
			return err
		}
		opts = append(opts, playback.WithQuality(tier))
	}
	if playNoCache {
		opts = append(opts, playback.WithoutCache())
	}

	ctx := cmd.Context()
	for _, id := range args {
		if err := svc.Play(ctx, id, opts...); err != nil {
			return err
		}
	}

	deadline := time.After(playFor)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fmt.Println(describeState(svc.State()))
		case <-deadline:
			return svc.Stop()
		case <-ctx.Done():
			return svc.Stop()
		}
	}
}

func describeState(state playback.State) string {
	if len(state.ActiveSounds) == 0 {
		return "idle"
	}
	parts := make([]string, 0, len(state.ActiveSounds))
	for _, id := range state.ActiveSounds {
		snd := state.Sounds[id]
		mark := ""
		if !snd.Playing {
			mark = " (paused)"
		}
		parts = append(parts, fmt.Sprintf("%s %v/%v%s",
			id, snd.Position.Truncate(time.Second), snd.Duration.Truncate(time.Second), mark))
	}
	return strings.Join(parts, "  ")
}
