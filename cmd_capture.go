package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"treemaker/lib"
	"treemaker/pkg/codec"
	"treemaker/pkg/document"
)

// captureFlags holds the flags shared by capture and digest
type captureFlags struct {
	compression string
	ignore      []string
}

// register adds the capture flags to cmd
func (flags *captureFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&flags.compression, "compression", "c", "", "compressor for binary files: lz4, zlib or none")
	f.StringSliceVar(&flags.ignore, "ignore", nil, "skip entries whose name matches this pattern (repeatable)")
}

// captureOptions merges the capture flags into the configured settings
func (a *app) captureOptions(cmd *cobra.Command, flags captureFlags) (lib.CaptureOptions, error) {
	opts := lib.CaptureOptions{
		Compression: a.cfg.Compression,
		Ignore:      append(append([]string{}, a.cfg.Ignore...), flags.ignore...),
	}
	if cmd.Flags().Changed("compression") {
		c, err := codec.ParseCompression(flags.compression)
		if err != nil {
			return lib.CaptureOptions{}, err
		}
		opts.Compression = c
	}
	return opts, nil
}

func newCaptureCmd(a *app) *cobra.Command {
	var flags captureFlags
	cmd := &cobra.Command{
		Use:     "capture <folder> [output]",
		Aliases: []string{"generate", "g"},
		Short:   "Capture a folder into a document",
		Long: `Capture walks a folder and stores its directories and files in one document.
Text files are stored literally; every other file is compressed and base64 encoded.

Without an output path, the document is written to the current directory and
named after the folder, e.g. proj.json.
`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.captureOptions(cmd, flags)
			if err != nil {
				return err
			}
			return a.runCapture(cmd, args, opts)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) runCapture(cmd *cobra.Command, args []string, opts lib.CaptureOptions) error {
	input := args[0]
	format := a.cfg.Format
	if len(args) > 1 {
		format = documentFormat(args[1], cmd.Flags().Changed("format"), format)
	}
	output, err := determineOutputPath(input, args, format)
	if err != nil {
		return err
	}

	n, err := lib.CaptureToFile(input, output, format, opts)
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
	fmt.Fprintf(out, "Document '%s' created successfully\n", output)
	fmt.Fprintf(out, "Fingerprint: %s\n", fingerprint)
	return nil
}
