package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"bmeview/pkg/bmeii"
	"bmeview/pkg/browse"
	"bmeview/pkg/conversion"
	"bmeview/pkg/selection"
	"bmeview/pkg/watch"
)

func (a *app) newConverter() (*conversion.Converter, error) {
	settings, err := a.cfg.ConversionSettings()
	if err != nil {
		return nil, err
	}
	if err := a.cfg.EnsureCacheDir(); err != nil {
		return nil, err
	}
	return conversion.New(settings, conversion.WithLogger(a.log))
}

// loadSelection reads the selection file, logging rows that were skipped
func (a *app) loadSelection() (*selection.Book, error) {
	book, rowErrs, err := selection.LoadFile(a.cfg.Selection.File)
	if err != nil {
		return nil, err
	}
	for _, rowErr := range rowErrs {
		a.log.Warn().Err(rowErr).Str("file", a.cfg.Selection.File).Msg("skipping selection row")
	}
	return book, nil
}

func printReport(w io.Writer, report *conversion.Report, book *selection.Book) {
	for _, res := range report.Results {
		if !res.OK() {
			fmt.Fprintf(w, "  skip  %s (%s): %v\n", res.Source, conversion.Kind(res.Err), res.Err)
			continue
		}

		mark := " "
		if book != nil && book.IsSelected(absDir(res.Source), res.Image.Stem) {
			mark = "*"
		}
		fmt.Fprintf(w, "%s ok    %s -> %s (%dx%d)\n", mark, res.Source, res.Image.Path, res.Image.Cols, res.Image.Rows)
	}
	fmt.Fprintf(w, "%d of %d files rendered in %s\n", report.Succeeded(), len(report.Results), report.Elapsed.Round(time.Millisecond))
}

func absDir(path string) string {
	dir := filepath.Dir(path)
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func newConvertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert PATH...",
		Short: "Render volume files or whole directories into the preview cache",
		Long: `Render every given volume file, and every volume file inside the given
directories, into the preview cache. The cache is emptied first. Files that
fail to decode are reported and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := browse.Expand(args)
			if err != nil {
				return err
			}

			converter, err := a.newConverter()
			if err != nil {
				return err
			}
			book, err := a.loadSelection()
			if err != nil {
				return err
			}

			report, err := converter.Convert(cmd.Context(), paths)
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), report, book)
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch DIR",
		Short: "Re-render a directory whenever its volume files change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			converter, err := a.newConverter()
			if err != nil {
				return err
			}
			debounce, err := a.cfg.DebounceDuration()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			refresh := func(ctx context.Context) {
				paths, err := browse.ListVolumes(dir)
				if err != nil {
					a.log.Error().Err(err).Str("dir", dir).Msg("listing volumes")
					return
				}
				book, err := a.loadSelection()
				if err != nil {
					a.log.Warn().Err(err).Msg("selection unavailable")
				}

				report, err := converter.Convert(ctx, paths)
				if err != nil {
					a.log.Error().Err(err).Msg("conversion failed")
					return
				}
				printReport(out, report, book)
			}

			w, err := watch.New(dir, refresh, watch.WithDebounce(debounce), watch.WithLogger(a.log))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			refresh(ctx)
			a.log.Info().Str("dir", dir).Dur("debounce", debounce).Str("suffix", bmeii.Extension).Msg("watching")
			return w.Run(ctx)
		},
	}
}
