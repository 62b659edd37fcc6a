package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// ProgressManager wraps a row-count progress bar. A manager created
// without output is a no-op.
type ProgressManager struct {
	bar     *progressbar.ProgressBar
	total   int64
	current int64
}

// ProgressEnabled reports whether stderr is a terminal worth drawing on
func ProgressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// NewProgressManager creates a progress bar on stderr for total rows
func NewProgressManager(total int64, description string, enabled bool) *ProgressManager {
	if !enabled {
		return &ProgressManager{total: total}
	}
	return newProgressManager(os.Stderr, total, description, true)
}

func newProgressManager(w io.Writer, total int64, description string, ansi bool) *ProgressManager {
	options := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionUseANSICodes(ansi),
	}

	return &ProgressManager{
		bar:   progressbar.NewOptions64(total, options...),
		total: total,
	}
}

// Add advances the bar by n rows, never past the total
func (pm *ProgressManager) Add(n int64) {
	if pm.total > 0 && pm.current+n > pm.total {
		n = pm.total - pm.current
	}
	pm.current += n
	if pm.bar != nil && n > 0 {
		pm.bar.Add64(n)
	}
}

// Current returns the number of rows recorded so far
func (pm *ProgressManager) Current() int64 {
	return pm.current
}

// Finish completes and releases the bar
func (pm *ProgressManager) Finish() {
	if pm.bar != nil {
		pm.bar.Finish()
		pm.bar = nil
	}
}
