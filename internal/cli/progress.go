package cli

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/code-digest/internal/compact"
)

// CLIProgressReporter draws compaction and graph-building progress bars.
// It implements compact.ProgressReporter and depgraph.ProgressReporter.
type CLIProgressReporter struct {
	quiet bool
	out   io.Writer

	mu       sync.Mutex
	fileBar  *progressbar.ProgressBar
	graphBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet, out: out}
}

func (c *CLIProgressReporter) newBar(total int, description, its string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(its),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnProgress(p compact.Progress) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch p.Phase {
	case compact.PhaseScanning:
		log.Println("Scanning files...")
	case compact.PhaseParsing:
		if c.fileBar == nil {
			c.fileBar = c.newBar(p.Total, "Compacting files", "files/s")
		}
		c.fileBar.Set(p.Current)
	case compact.PhaseFinishing:
		if c.fileBar != nil {
			c.fileBar.Finish()
			c.fileBar = nil
		}
	case compact.PhaseEmpty:
		log.Println("No supported source files found")
	}
}

func (c *CLIProgressReporter) OnFileSkipped(path string, err error) {
	if c.quiet {
		return
	}
	log.Printf("Skipped %s: %v", path, err)
}

func (c *CLIProgressReporter) OnComplete(result *compact.Result) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}
}

func (c *CLIProgressReporter) OnGraphBuildingStart(totalFiles int) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// Finish any existing progress bar
	if c.graphBar != nil {
		c.graphBar.Finish()
	}
	c.graphBar = c.newBar(totalFiles, "Building graph", "files/s")
}

func (c *CLIProgressReporter) OnGraphFileProcessed(processedFiles, totalFiles int, fileName string) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.graphBar != nil {
		c.graphBar.Set(processedFiles)
	}
}

func (c *CLIProgressReporter) OnGraphBuildingComplete(nodeCount, edgeCount int, duration time.Duration) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.graphBar != nil {
		c.graphBar.Finish()
		c.graphBar = nil
	}
	log.Printf("Graph built: %s nodes, %s edges (took %.1fs)",
		formatNumber(nodeCount), formatNumber(edgeCount), duration.Seconds())
}
