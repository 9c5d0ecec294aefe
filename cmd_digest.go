package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"treemaker/lib"
	"treemaker/pkg/document"
)

func newDigestCmd(a *app) *cobra.Command {
	var flags captureFlags
	cmd := &cobra.Command{
		Use:   "digest <document|folder>",
		Short: "Print the fingerprint of a document or folder",
		Long: `Digest prints the fingerprint of a document. Given a folder, it captures the
folder in memory and prints the fingerprint that capture would record, so a
folder can be checked against a document captured with the same --compression
and --ignore flags.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.loadTree(cmd, args[0], flags)
			if err != nil {
				return err
			}
			fingerprint, err := lib.Fingerprint(n)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.cfg.Verbose {
				printStats(out, document.Summarize(n))
			}
			fmt.Fprintln(out, fingerprint)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// loadTree parses a document, or captures a folder
func (a *app) loadTree(cmd *cobra.Command, path string, flags captureFlags) (lib.Node, error) {
	info, err := os.Stat(path)
	if err != nil {
		return lib.Node{}, fmt.Errorf("digest %s: %w", path, err)
	}
	if !info.IsDir() {
		return lib.ReadDocument(path, documentFormat(path, cmd.Flags().Changed("format"), a.cfg.Format))
	}
	opts, err := a.captureOptions(cmd, flags)
	if err != nil {
		return lib.Node{}, err
	}
	return lib.Capture(path, opts)
}

// printStats prints the node counts of a tree
func printStats(w io.Writer, s document.Stats) {
	fmt.Fprintf(w, "%d directories, %d files (%d text, %d binary), %d bytes of content\n",
		s.Directories, s.Files(), s.TextFiles, s.BinaryFiles, s.ContentSize)
}
