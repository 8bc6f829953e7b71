package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bmeview/pkg/bmeii"
	"bmeview/pkg/config"
	"bmeview/pkg/selection"
)

// stems accepts either bare stems or volume file names
func stems(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = bmeii.Stem(arg)
	}
	return out
}

func newSelectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Manage the selected files of each directory",
	}

	update := func(use, short string, apply func(b *selection.Book, dir string, stems []string)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " DIR STEM...",
			Short: short,
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				dir, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				book, err := a.loadSelection()
				if err != nil {
					return err
				}

				apply(book, dir, stems(args[1:]))
				if err := selection.SaveFile(a.cfg.Selection.File, book); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", dir, selection.FormatList(book.Selected(dir)))
				return nil
			},
		}
	}

	cmd.AddCommand(
		update("add", "Select files in a directory", func(b *selection.Book, dir string, stems []string) {
			b.Add(dir, stems...)
		}),
		update("remove", "Deselect files in a directory", func(b *selection.Book, dir string, stems []string) {
			b.Remove(dir, stems...)
		}),
		update("toggle", "Flip the selection state of files in a directory", func(b *selection.Book, dir string, stems []string) {
			for _, stem := range stems {
				b.Toggle(dir, stem)
			}
		}),
		&cobra.Command{
			Use:   "show [DIR]",
			Short: "Print the selection of one directory or of all directories",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				book, err := a.loadSelection()
				if err != nil {
					return err
				}

				dirs := book.Dirs()
				if len(args) == 1 {
					dir, err := filepath.Abs(args[0])
					if err != nil {
						return err
					}
					dirs = []string{dir}
				}

				for _, dir := range dirs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", dir, selection.FormatList(book.Selected(dir)))
				}
				return nil
			},
		},
	)

	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		// The file being created may not be loadable yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a configuration file with the default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.flags.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if path == "" {
				return fmt.Errorf("no config path given and no user config directory")
			}

			if fileExists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
