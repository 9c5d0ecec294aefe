package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"treemaker/lib"
	"treemaker/pkg/config"
	"treemaker/pkg/document"
	"treemaker/pkg/progress"
)

func TestMain(m *testing.M) {
	progress.SetTestMode(true)
	progress.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// runCLI executes the command tree with args and returns what it printed
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{config.EnvFormat, config.EnvCompression, config.EnvQuiet} {
		t.Setenv(key, "")
	}
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// createTestTree creates a small project folder and returns its path
func createTestTree(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "proj")
	files := map[string][]byte{
		"readme.txt":     []byte("hello"),
		"logo.png":       {0x89, 0x50, 0x4E, 0x47},
		"src/main.go":    []byte("package main\n"),
		"src/blob.bin":   bytes.Repeat([]byte{0, 1, 2, 3}, 1000),
		"docs/notes.md":  []byte("# Notes\n"),
		"docs/empty.txt": {},
	}
	for rel, content := range files {
		p := filepath.Join(src, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(p, content, 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(src, "empty"), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	return src
}

// fingerprintFrom extracts the fingerprint line printed by capture
func fingerprintFrom(t *testing.T, output string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "Fingerprint: ") {
			return strings.TrimPrefix(line, "Fingerprint: ")
		}
	}
	t.Fatalf("No fingerprint in output %q", output)
	return ""
}

func TestCLIRoundTrip(t *testing.T) {
	for _, ext := range []string{".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			src := createTestTree(t)
			work := t.TempDir()
			doc := filepath.Join(work, "proj"+ext)

			output, err := runCLI(t, "capture", src, doc, "-q")
			if err != nil {
				t.Fatalf("capture failed: %v", err)
			}
			fingerprint := fingerprintFrom(t, output)

			n, err := lib.ReadDocument(doc, document.FormatFromPath(doc))
			if err != nil {
				t.Fatalf("Failed to read document: %v", err)
			}
			if document.FormatFromPath(doc) == document.FormatYAML {
				data, _ := os.ReadFile(doc)
				if !bytes.HasPrefix(data, []byte("type: directory")) {
					t.Fatalf("Expected a YAML document, got %q", data[:20])
				}
			}

			// digest agrees for the document and for the folder itself
			for _, target := range []string{doc, src} {
				output, err := runCLI(t, "digest", target)
				if err != nil {
					t.Fatalf("digest %s failed: %v", target, err)
				}
				if strings.TrimSpace(output) != fingerprint {
					t.Fatalf("digest %s = %q, expected %q", target, output, fingerprint)
				}
			}

			dest := filepath.Join(work, "out")
			if _, err := runCLI(t, "create", doc, dest); err != nil {
				t.Fatalf("materialize failed: %v", err)
			}
			again, err := lib.Capture(filepath.Join(dest, "proj"), lib.CaptureOptions{})
			if err != nil {
				t.Fatalf("Failed to capture the materialized tree: %v", err)
			}
			fa, _ := lib.Fingerprint(n)
			fb, _ := lib.Fingerprint(again)
			if fa != fb {
				t.Fatalf("Materialized tree differs from the document")
			}
		})
	}
}

func TestCLIDryRun(t *testing.T) {
	src := createTestTree(t)
	work := t.TempDir()
	doc := filepath.Join(work, "proj.json")
	if _, err := runCLI(t, "g", src, doc, "-q"); err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	dest := filepath.Join(work, "dry")
	output, err := runCLI(t, "materialize", doc, dest, "--dry-run")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !strings.Contains(output, "would write "+filepath.Join(dest, "proj", "readme.txt")) {
		t.Fatalf("Missing planned write in %q", output)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("Dry run created %s", dest)
	}
}

func TestCLIFormatWithoutExtension(t *testing.T) {
	src := createTestTree(t)
	work := t.TempDir()
	doc := filepath.Join(work, "snapshot")

	output, err := runCLI(t, "capture", src, doc, "--format", "yaml", "-q")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	fingerprint := fingerprintFrom(t, output)
	data, err := os.ReadFile(doc)
	if err != nil {
		t.Fatalf("Failed to read document: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("type: directory")) {
		t.Fatalf("Expected a YAML document")
	}

	output, err = runCLI(t, "digest", doc, "--format", "yaml")
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	if strings.TrimSpace(output) != fingerprint {
		t.Fatalf("digest = %q, expected %q", output, fingerprint)
	}

	dest := filepath.Join(work, "out")
	if _, err := runCLI(t, "materialize", doc, dest, "-f", "yml", "-q"); err != nil {
		t.Fatalf("materialize failed: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "proj", "readme.txt"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("Unexpected readme content %q: %v", got, err)
	}

	// The configured format applies to paths without a known extension
	t.Setenv(config.EnvFormat, "yaml")
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"digest", doc})
	if err := root.Execute(); err != nil {
		t.Fatalf("digest with %s failed: %v", config.EnvFormat, err)
	}
	if strings.TrimSpace(buf.String()) != fingerprint {
		t.Fatalf("digest = %q, expected %q", buf.String(), fingerprint)
	}

	// Without any format hint the document is read as JSON and rejected
	if _, err := runCLI(t, "digest", doc); err == nil {
		t.Fatalf("Expected error reading a YAML document as JSON")
	}
}

func TestCLIDigestFolderMatchesCapture(t *testing.T) {
	src := createTestTree(t)
	work := t.TempDir()
	doc := filepath.Join(work, "proj.json")

	args := []string{"--compression", "zlib", "--ignore", "*.bin", "--ignore", "docs"}
	output, err := runCLI(t, append([]string{"capture", src, doc, "-q"}, args...)...)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	fingerprint := fingerprintFrom(t, output)

	output, err = runCLI(t, append([]string{"digest", src}, args...)...)
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	if strings.TrimSpace(output) != fingerprint {
		t.Fatalf("digest of the folder = %q, expected %q", output, fingerprint)
	}

	// Default settings capture more, so the fingerprint differs
	output, err = runCLI(t, "digest", src)
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	if strings.TrimSpace(output) == fingerprint {
		t.Fatalf("Expected a different fingerprint without the capture flags")
	}

	if _, err := runCLI(t, "digest", src, "--compression", "gzip"); err == nil {
		t.Fatalf("Expected error for an unknown compression")
	}
}

func TestCLIErrors(t *testing.T) {
	src := createTestTree(t)
	work := t.TempDir()
	doc := filepath.Join(work, "proj.json")
	if _, err := runCLI(t, "capture", src, doc, "-q"); err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	_, err := runCLI(t, "capture", filepath.Join(work, "missing"), filepath.Join(work, "x.json"))
	if !errors.Is(err, lib.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	testCases := []struct {
		name string
		args []string
	}{
		{"Unknown compression", []string{"capture", src, filepath.Join(work, "y.json"), "--compression", "gzip"}},
		{"Unknown format", []string{"capture", src, "--format", "xml"}},
		{"Bad permission", []string{"materialize", doc, filepath.Join(work, "z"), "--dir-perm", "999"}},
		{"Too many arguments", []string{"materialize", doc, "a", "b"}},
		{"Missing document", []string{"materialize", filepath.Join(work, "nope.json")}},
		{"Missing config", []string{"digest", doc, "--config", filepath.Join(work, "none.yaml")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := runCLI(t, tc.args...); err == nil {
				t.Fatalf("Expected error for %v", tc.args)
			}
		})
	}
}

func TestCLIVersion(t *testing.T) {
	output, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(output, "treemaker "+version) {
		t.Fatalf("Unexpected version output %q", output)
	}
}

func TestDetermineOutputPath(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	testCases := []struct {
		name     string
		input    string
		args     []string
		format   document.Format
		expected string
	}{
		{"Explicit output", "proj", []string{"proj", "snap.yaml"}, document.FormatJSON, "snap.yaml"},
		{"Folder name", "some/dir/proj", []string{"some/dir/proj"}, document.FormatJSON, "proj.json"},
		{"Trailing separator", "proj/", []string{"proj/"}, document.FormatYAML, "proj.yaml"},
		{"Current directory", ".", []string{"."}, document.FormatJSON, filepath.Base(cwd) + ".json"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := determineOutputPath(tc.input, tc.args, tc.format)
			if err != nil {
				t.Fatalf("determineOutputPath failed: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestDocumentFormat(t *testing.T) {
	if f := documentFormat("snap.yml", false, document.FormatJSON); f != document.FormatYAML {
		t.Errorf("Expected yaml from extension, got %s", f)
	}
	if f := documentFormat("snap.yml", true, document.FormatJSON); f != document.FormatJSON {
		t.Errorf("Expected the flag to win, got %s", f)
	}
	if f := documentFormat("snap.txt", false, document.FormatYAML); f != document.FormatYAML {
		t.Errorf("Expected configured format for unknown extension, got %s", f)
	}
}

func TestDetermineDestination(t *testing.T) {
	testCases := []struct {
		input    string
		args     []string
		expected string
	}{
		{"proj.json", []string{"proj.json", "out"}, "out"},
		{"proj.json", []string{"proj.json"}, "proj"},
		{filepath.Join("docs", "proj.yaml"), []string{"x"}, filepath.Join("docs", "proj")},
		{"snapshot", []string{"snapshot"}, "."},
		{".json", []string{".json"}, "."},
	}

	for _, tc := range testCases {
		if got := determineDestination(tc.input, tc.args); got != tc.expected {
			t.Errorf("determineDestination(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}

func TestParsePerm(t *testing.T) {
	for s, expected := range map[string]os.FileMode{"755": 0755, "0644": 0644, "700": 0700} {
		got, err := parsePerm(s)
		if err != nil || got != expected {
			t.Errorf("parsePerm(%q) = %o, %v", s, got, err)
		}
	}
	for _, s := range []string{"", "0", "999", "1777", "rw-r--r--"} {
		if _, err := parsePerm(s); err == nil {
			t.Errorf("Expected error for %q", s)
		}
	}
}
