// Package ui prints status lines for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/easygit/easy-git/internal/failure"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// Printer writes status lines to a single destination, stderr by default.
type Printer struct {
	Out io.Writer
}

// New returns a Printer writing to w, or to stderr when w is nil.
func New(w io.Writer) *Printer {
	if w == nil {
		w = os.Stderr
	}
	return &Printer{Out: w}
}

// Info prints an informational message with a cyan arrow.
func (p *Printer) Info(format string, args ...any) {
	p.line(cyan("→"), fmt.Sprintf(format, args...))
}

// Success prints a success message with a green checkmark.
func (p *Printer) Success(format string, args ...any) {
	p.line(green("✔"), fmt.Sprintf(format, args...))
}

// Warn prints a warning message with a yellow circle.
func (p *Printer) Warn(format string, args ...any) {
	p.line(yellow("○"), fmt.Sprintf(format, args...))
}

// Fail prints err with a red cross. Multi-line errors, such as git conflict
// output, keep their lines and are indented under the first.
func (p *Printer) Fail(err error) {
	if err == nil {
		return
	}
	lines := strings.Split(strings.TrimRight(err.Error(), "\n"), "\n")

	head := lines[0]
	if label := kindLabel(failure.KindOf(err)); label != "" {
		head = bold(label) + " " + head
	}
	p.line(red("✘"), head)
	for _, l := range lines[1:] {
		fmt.Fprintf(p.writer(), "    %s\n", dim(l))
	}
}

func (p *Printer) line(symbol, msg string) {
	fmt.Fprintf(p.writer(), "  %s %s\n", symbol, msg)
}

func (p *Printer) writer() io.Writer {
	if p == nil || p.Out == nil {
		return os.Stderr
	}
	return p.Out
}

func kindLabel(kind failure.Kind) string {
	switch kind {
	case failure.KindLaunch:
		return "[launch]"
	case failure.KindCommand:
		return "[git]"
	case failure.KindNetwork:
		return "[network]"
	case failure.KindProtocol:
		return "[protocol]"
	case failure.KindConfiguration:
		return "[config]"
	case failure.KindFilesystem:
		return "[fs]"
	default:
		return ""
	}
}
