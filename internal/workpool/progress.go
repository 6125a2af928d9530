package workpool

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// TaskProgress reports the progress of one group of tasks.
type TaskProgress interface {
	Increment(n int)
	Describe(description string)
	Complete()
}

// NewProgress returns a progress bar on stderr when enabled and stderr is a terminal,
// and a no-op tracker otherwise.
func NewProgress(enabled bool, description string, total int) TaskProgress {
	if !enabled || !IsInteractive() {
		return noOpProgress{}
	}
	return newBarProgress(os.Stderr, description, total)
}

// IsInteractive reports whether stderr is attached to a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func newBarProgress(w io.Writer, description string, total int) *barProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(18),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
	return &barProgress{bar: bar}
}

type barProgress struct {
	bar *progressbar.ProgressBar
}

func (p *barProgress) Increment(n int) {
	_ = p.bar.Add(n)
}

func (p *barProgress) Describe(description string) {
	p.bar.Describe(description)
}

func (p *barProgress) Complete() {
	_ = p.bar.Finish()
}

type noOpProgress struct{}

func (noOpProgress) Increment(int)   {}
func (noOpProgress) Describe(string) {}
func (noOpProgress) Complete()       {}
