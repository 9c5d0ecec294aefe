// Package progress reports how many files and bytes a capture or materialize
// run has processed so far. Counters are global so the tree walkers can feed
// them directly.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Global variables for progress tracking
var (
	totalBytesProcessed atomic.Uint64
	filesProcessed      atomic.Uint64
	totalSize           uint64
	label               string
	done                chan struct{}
	stopped             chan struct{}
	progressRunning     bool
	progressMutex       sync.Mutex
	isTestMode          bool
	isQuiet             bool
	out                 io.Writer = os.Stdout
)

// Init starts reporting for an operation named by what ("Capturing",
// "Materializing"). size is the expected number of bytes, or 0 if unknown.
func Init(what string, size uint64) {
	progressMutex.Lock()
	defer progressMutex.Unlock()

	if progressRunning {
		return
	}

	totalBytesProcessed.Store(0)
	filesProcessed.Store(0)
	totalSize = size
	label = what

	done = make(chan struct{})
	stopped = make(chan struct{})
	progressRunning = true
	go logger(done, stopped)
}

// SetTestMode enables or disables test mode
// In test mode, progress output is minimal to avoid cluttering test output
func SetTestMode(enabled bool) {
	progressMutex.Lock()
	defer progressMutex.Unlock()
	isTestMode = enabled
}

// SetQuiet suppresses all progress output
func SetQuiet(enabled bool) {
	progressMutex.Lock()
	defer progressMutex.Unlock()
	isQuiet = enabled
}

// SetOutput redirects progress lines, mainly for tests
func SetOutput(w io.Writer) {
	progressMutex.Lock()
	defer progressMutex.Unlock()
	out = w
}

// Stop stops the progress tracking and waits for the final line
func Stop() {
	progressMutex.Lock()
	if !progressRunning {
		progressMutex.Unlock()
		return
	}
	close(done)
	progressRunning = false
	wait := stopped
	progressMutex.Unlock()

	<-wait
}

// AddFile counts one processed file of n bytes
func AddFile(n uint64) {
	filesProcessed.Add(1)
	if n > 0 {
		totalBytesProcessed.Add(n)
	}
}

// Processed returns the files and bytes counted since the last Init
func Processed() (files, bytes uint64) {
	return filesProcessed.Load(), totalBytesProcessed.Load()
}

// formatSize returns a human-readable size string with an optional suffix
func formatSize(bytes uint64, suffix string) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B%s", bytes, suffix)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB%s", float64(bytes)/float64(div), "KMGTPE"[exp], suffix)
}

// printf writes one progress line unless output is suppressed
func printf(format string, args ...interface{}) {
	progressMutex.Lock()
	w, quiet := out, isQuiet
	progressMutex.Unlock()
	if quiet {
		return
	}
	fmt.Fprintf(w, format, args...)
}

func testMode() bool {
	progressMutex.Lock()
	defer progressMutex.Unlock()
	return isTestMode
}

// logger logs processing progress periodically
func logger(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	var prevBytes uint64
	startTime := time.Now()
	lastOutputTime := time.Now()
	test := testMode()

	if test {
		printf("[TEST] %s\n", label)
	} else {
		printf("%s...\n", label)
	}

	for {
		select {
		case <-ticker.C:
			if test {
				continue
			}
			currentBytes := totalBytesProcessed.Load()
			rate := (currentBytes - prevBytes) * 4 // Bytes per second (250ms interval)
			prevBytes = currentBytes

			if time.Since(lastOutputTime) < time.Second {
				continue
			}
			lastOutputTime = time.Now()

			if totalSize > 0 {
				percentage := float64(currentBytes) / float64(totalSize) * 100
				printf("%s %s of %s (%.1f%%) | Rate: %s\n", label,
					formatSize(currentBytes, ""), formatSize(totalSize, ""),
					percentage, formatSize(rate, "/s"))
			} else {
				printf("%s %s | Rate: %s\n", label,
					formatSize(currentBytes, ""), formatSize(rate, "/s"))
			}
		case <-done:
			files, bytes := Processed()
			if test {
				printf("[TEST] %d files, %d bytes\n", files, bytes)
				return
			}
			totalTime := time.Since(startTime).Seconds()
			if totalTime < 0.001 {
				totalTime = 0.001 // Avoid division by zero
			}
			printf("%s done: %d files, %s in %.1f seconds (avg rate: %s)\n",
				label, files, formatSize(bytes, ""), totalTime,
				formatSize(uint64(float64(bytes)/totalTime), "/s"))
			return
		}
	}
}

// Writer is a writer that tracks bytes written for progress reporting
type Writer struct {
	W io.Writer
}

// Write implements io.Writer and tracks bytes written
func (pw *Writer) Write(p []byte) (n int, err error) {
	n, err = pw.W.Write(p)
	if err == nil && n > 0 {
		totalBytesProcessed.Add(uint64(n))
	}
	return
}

// Close counts the written file once and closes the underlying writer if it
// is an io.Closer
func (pw *Writer) Close() error {
	filesProcessed.Add(1)
	if c, ok := pw.W.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
