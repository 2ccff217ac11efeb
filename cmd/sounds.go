package cmd

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var soundsCmd = &cobra.Command{
	Use:   "sounds",
	Short: "List the sound catalog",
	Args:  cobra.NoArgs,
	RunE:  runSounds,
}

func init() {
	rootCmd.AddCommand(soundsCmd)
}

func runSounds(cmd *cobra.Command, args []string) error {
	cat, err := engineCatalog(cfg, true)
	if err != nil {
		return err
	}

	rows := lo.Map(cat.IDs(), func(id string, _ int) string {
		d, _ := cat.Lookup(id)
		loop := "once"
		if d.Loop {
			loop = "loop"
		}
		return fmt.Sprintf("%-20s %-7s vol %.1f  %-4s %s", d.ID, d.Quality, d.DefaultVolume, loop, d.Path)
	})
	for _, row := range rows {
		fmt.Println(row)
	}
	return nil
}
