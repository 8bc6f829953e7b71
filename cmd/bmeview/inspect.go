package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bmeview/pkg/bmeii"
	"bmeview/pkg/browse"
	"bmeview/pkg/colormap"
	"bmeview/pkg/visualization"
)

func newDirsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dirs [ROOT]",
		Short: "List study directories with their volume and selection counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.cfg.Browse.Root
			if len(args) == 1 {
				root = args[0]
			}

			dirs, err := browse.ListDirs(root)
			if err != nil {
				return err
			}
			book, err := a.loadSelection()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DIRECTORY\tVOLUMES\tSELECTED")
			for _, name := range dirs {
				dir := filepath.Join(root, name)
				volumes, err := browse.ListVolumes(dir)
				if err != nil {
					a.log.Warn().Err(err).Str("dir", dir).Msg("cannot list directory")
					continue
				}
				abs, err := filepath.Abs(dir)
				if err != nil {
					abs = dir
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\n", name, len(volumes), len(book.Selected(abs)))
			}
			return tw.Flush()
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	var slicesDir string

	cmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Print the header and plane statistics of a volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.DecodeOptions()
			if err != nil {
				return err
			}
			volume, err := bmeii.Open(args[0], opts)
			if err != nil {
				return err
			}

			h := volume.Header
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:       %s\n", args[0])
			fmt.Fprintf(out, "Dimensions: %d rows x %d cols x %d slices\n", h.Rows, h.Cols, h.Slices)
			fmt.Fprintf(out, "Spacing:    %.4g x %.4g, slice thickness %.4g\n", h.PixelSpacingX, h.PixelSpacingY, h.SliceThickness)
			fmt.Fprintf(out, "Layout:     %s (%d bytes payload)\n", volume.Layout, h.PayloadBytes(volume.Layout))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLANE\tMIN\tMAX\tMEAN\tSTDDEV")
			for i := 0; i < volume.Planes(); i++ {
				plane, err := volume.Plane(i)
				if err != nil {
					return err
				}
				s := visualization.Summarize(plane)
				fmt.Fprintf(tw, "%d\t%g\t%g\t%.3f\t%.3f\n", i, s.Min, s.Max, s.Mean, s.StdDev)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if slicesDir == "" {
				return nil
			}

			registry, err := colormap.NewRegistry()
			if err != nil {
				return err
			}
			cmap, err := registry.Lookup(a.cfg.Render.Colormap)
			if err != nil {
				return err
			}
			written, err := visualization.NewViewer(volume, cmap).SavePlaneSequence(slicesDir, bmeii.Stem(args[0]))
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&slicesDir, "slices-dir", "", "Also render every plane into this directory")
	return cmd
}

func newPalettesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "palettes",
		Short: "List the available colormaps by group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := colormap.NewRegistry()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, group := range registry.Groups() {
				fmt.Fprintf(out, "%s:\n", group)
				for _, name := range registry.Names(group) {
					mark := " "
					if strings.EqualFold(name, a.cfg.Render.Colormap) {
						mark = "*"
					}
					fmt.Fprintf(out, "  %s %s\n", mark, name)
				}
			}
			return nil
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
