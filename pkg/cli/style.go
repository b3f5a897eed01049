package cli

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
)

// Styler wraps text in ANSI colors when enabled.
type Styler struct {
	Colorize bool
}

// NewStyler enables colors only when f is a terminal and noColor is unset.
func NewStyler(f *os.File, noColor bool) Styler {
	if noColor || f == nil {
		return Styler{}
	}
	fd := f.Fd()
	return Styler{Colorize: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}
}

func (s Styler) paint(code, text string) string {
	if !s.Colorize {
		return text
	}
	return code + text + colorReset
}

func (s Styler) Header(text string) string { return s.paint(colorPurple, text) }
func (s Styler) Info(text string) string { return s.paint(colorBlue, text) }
func (s Styler) Success(text string) string { return s.paint(colorGreen, text) }
func (s Styler) Warning(text string) string { return s.paint(colorYellow, text) }
func (s Styler) Fail(text string) string { return s.paint(colorRed, text) }
func (s Styler) Note(text string) string { return s.paint(colorCyan, text) }
func (s Styler) Bold(text string) string { return s.paint(colorBold, text) }
