package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"photoflow/internal/enhance"
)

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the available enhancement presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, 8)
			for _, p := range enhance.Presets() {
				d := p.Display()
				rows = append(rows, []string{
					p.Name,
					p.AspectRatio,
					strconv.Itoa(p.Quality),
					strconv.FormatFloat(d.Brightness, 'f', 0, 64),
					strconv.FormatFloat(d.Contrast, 'f', 0, 64),
					strconv.FormatFloat(d.Saturation, 'f', 0, 64),
					p.Description,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Preset", "Aspect", "Quality", "Brightness", "Contrast", "Saturation", "Description"},
				rows, 3, 4, 5, 6))
			return nil
		},
	}
}
