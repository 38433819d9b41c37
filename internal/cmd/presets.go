package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/MeKo-Tech/histeq/internal/equalize"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in enhancement presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printPresets(cmd.OutOrStdout(), equalize.Presets)
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func printPresets(w io.Writer, presets []equalize.Preset) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMODE\tTILE\tCLIP\tSTRENGTH\tDESCRIPTION")
	for _, p := range presets {
		tile, clip := "-", "-"
		if p.Config.Mode == equalize.ModeCLAHE {
			tile = fmt.Sprintf("%d", p.Config.TileSize)
			clip = fmt.Sprintf("%.1f", p.Config.ClipLimit)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
			p.Name, p.Config.Mode, tile, clip, p.Config.Strength, p.Description)
	}
	return tw.Flush()
}
