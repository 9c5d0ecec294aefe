package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"treemaker/pkg/config"
	"treemaker/pkg/document"
	"treemaker/pkg/progress"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// app carries the global flags and the resolved configuration to the commands
type app struct {
	configPath string
	format     string
	quiet      bool
	verbose    bool

	cfg config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "treemaker",
		Short: "Snapshot a directory tree into one document and recreate it",
		Long: `treemaker captures a directory tree, file contents included, into a single
JSON or YAML document, and materializes such a document back into files.

	treemaker capture ./proj            # writes proj.json
	treemaker materialize proj.json     # recreates proj/proj
`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultFile+" if present)")
	f.StringVarP(&a.format, "format", "f", "", "document format: json or yaml")
	f.BoolVarP(&a.quiet, "quiet", "q", false, "suppress progress output")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "print every directory and file touched")

	root.AddCommand(newCaptureCmd(a), newMaterializeCmd(a), newDigestCmd(a), newVersionCmd())
	return root
}

// loadConfig resolves defaults, config file, environment and flags, in that order
func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(afero.NewOsFs(), a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = document.Format(a.format)
	}
	if flags.Changed("quiet") {
		cfg.Quiet = a.quiet
	}
	if flags.Changed("verbose") {
		cfg.Verbose = a.verbose
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	progress.SetQuiet(cfg.Quiet)
	return nil
}

// determineOutputPath determines the document path for capture
func determineOutputPath(input string, args []string, f document.Format) (string, error) {
	// If output is provided as an argument, use it
	if len(args) > 1 {
		return args[1], nil
	}

	// Otherwise, use the folder's own name, which "." and ".." do not carry
	abs, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", input, err)
	}
	return filepath.Base(abs) + f.Ext(), nil
}

// documentFormat picks the format of a document path, for reading and
// writing alike: the --format flag wins, then a recognized extension, then
// the configured default
func documentFormat(path string, flagSet bool, configured document.Format) document.Format {
	if flagSet {
		return configured
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return document.FormatFromPath(path)
	}
	return configured
}

// determineDestination determines the directory materialize writes under
func determineDestination(input string, args []string) string {
	if len(args) > 1 {
		return args[1]
	}

	// proj.json -> proj
	dest := strings.TrimSuffix(input, filepath.Ext(input))
	if dest == input || dest == "" || strings.HasSuffix(dest, string(filepath.Separator)) {
		return "."
	}
	return dest
}

// parsePerm parses an octal permission such as "755" or "0644"
func parsePerm(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid permission %q: %w", s, err)
	}
	if v == 0 || v > 0777 {
		return 0, fmt.Errorf("invalid permission %q: must be between 1 and 777", s)
	}
	return os.FileMode(v), nil
}
