package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"treemaker/lib"
)

// materializeFlags holds the flags only materialize accepts
type materializeFlags struct {
	dryRun   bool
	dirPerm  string
	filePerm string
}

func newMaterializeCmd(a *app) *cobra.Command {
	var flags materializeFlags
	cmd := &cobra.Command{
		Use:     "materialize <document> [destination]",
		Aliases: []string{"create", "c"},
		Short:   "Recreate the tree stored in a document",
		Long: `Materialize recreates the directories and files of a document under the
destination directory. Existing directories are reused and existing files are
overwritten; nothing is deleted.

Without a destination, the document path minus its extension is used, so
proj.json is materialized into proj/proj.
`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("dir-perm") {
				perm, err := parsePerm(flags.dirPerm)
				if err != nil {
					return err
				}
				a.cfg.DirPerm = perm
			}
			if cmd.Flags().Changed("file-perm") {
				perm, err := parsePerm(flags.filePerm)
				if err != nil {
					return err
				}
				a.cfg.FilePerm = perm
			}
			return a.runMaterialize(cmd, args, flags)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&flags.dryRun, "dry-run", "n", false, "print what would be created without writing anything")
	f.StringVar(&flags.dirPerm, "dir-perm", "", "permissions for created directories, in octal")
	f.StringVar(&flags.filePerm, "file-perm", "", "permissions for created files, in octal")
	return cmd
}

func (a *app) runMaterialize(cmd *cobra.Command, args []string, flags materializeFlags) error {
	input := args[0]
	dest := determineDestination(input, args)
	out := cmd.OutOrStdout()

	opts := lib.MaterializeOptions{
		DirPerm:  a.cfg.DirPerm,
		FilePerm: a.cfg.FilePerm,
		DryRun:   flags.dryRun,
	}
	if flags.dryRun || a.cfg.Verbose {
		prefix := ""
		if flags.dryRun {
			prefix = "would "
		}
		opts.Report = func(action, path string) {
			fmt.Fprintf(out, "%s%s %s\n", prefix, action, path)
		}
	}

	format := documentFormat(input, cmd.Flags().Changed("format"), a.cfg.Format)
	if err := lib.MaterializeFile(input, dest, format, opts); err != nil {
		return err
	}
	if !flags.dryRun {
		fmt.Fprintf(out, "Tree from '%s' created under '%s'\n", input, dest)
	}
	return nil
}
