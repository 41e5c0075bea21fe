package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the playground banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	if !IsTerminal(w) {
		p = termenv.Ascii
	}
	lines := []struct {
		text  string
		color string
	}{
		{"        _                                             _ ", "#14f195"},
		{"  _ __ | | __ _ _   _  __ _ _ __ ___  _   _ _ __   __| |", "#3ee0b4"},
		{" | '_ \\| |/ _` | | | |/ _` | '__/ _ \\| | | | '_ \\ / _` |", "#68cfd3"},
		{" | |_) | | (_| | |_| | (_| | | | (_) | |_| | | | | (_| |", "#92bef2"},
		{" | .__/|_|\\__,_|\\__, |\\__, |_|  \\___/ \\__,_|_| |_|\\__,_|", "#a78bfa"},
		{" |_|            |___/ |___/                              ", "#9945ff"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String(" "+version).Faint())
	fmt.Fprintln(w)
}
