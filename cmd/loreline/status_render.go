package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const ansiReset = "\x1b[0m"

var statusStyles = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

// renderStatusLine formats one preflight result, e.g.
// "  Input directory:     [OK] /data/raw (read ok)".
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	line := fmt.Sprintf("  %-20s [%s]", label+":", statusStyles[kind].label)
	if message != "" {
		line += " " + message
	}
	return paint(line, kind, colorize)
}

// paint wraps s in the colour for kind when colorize is set.
func paint(s string, kind statusKind, colorize bool) string {
	color := statusStyles[kind].color
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

// shouldColorize reports whether w is an interactive terminal.
func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
