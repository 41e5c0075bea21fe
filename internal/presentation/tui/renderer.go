package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/aretw0/playground/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Renderer prints run results for humans.
// On a terminal it renders markdown with glamour and colors statuses;
// otherwise it writes the plain markdown.
type Renderer struct {
	out      io.Writer
	profile  termenv.Profile
	markdown func(string) (string, error)
}

// NewRenderer creates a Renderer writing to out.
func NewRenderer(out io.Writer) *Renderer {
	r := &Renderer{out: out, profile: termenv.Ascii}
	if !IsTerminal(out) {
		return r
	}

	r.profile = termenv.ColorProfile()
	width := 100
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			width = w - 4
		}
	}
	gr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(width),
	)
	if err == nil {
		r.markdown = gr.Render
	}
	return r
}

// Status returns the status label, colored when the output supports it.
func (r *Renderer) Status(s domain.RunStatus) string {
	color := map[domain.RunStatus]string{
		domain.StatusIdle:    "#9ca3af",
		domain.StatusPending: "#f59e0b",
		domain.StatusSuccess: "#22c55e",
		domain.StatusError:   "#ef4444",
	}[s]
	out := r.profile.String(string(s))
	if color != "" {
		out = out.Foreground(r.profile.Color(color))
	}
	if s == domain.StatusError {
		out = out.Bold()
	}
	return out.String()
}

// Results writes one line per node followed by a markdown report.
func (r *Renderer) Results(g domain.Graph, results []domain.Result) error {
	for _, res := range results {
		kind := ""
		if n, ok := g.Node(res.NodeID); ok {
			kind = n.Kind
		}
		fmt.Fprintf(r.out, "%-12s %s (%s)\n", r.Status(res.Status), res.NodeID, kind)
	}
	fmt.Fprintln(r.out)

	md := ResultsMarkdown(g, results)
	if r.markdown != nil {
		rendered, err := r.markdown(md)
		if err != nil {
			return err
		}
		md = rendered
	}
	_, err := io.WriteString(r.out, md)
	return err
}

// ResultsMarkdown builds a markdown report: a summary table and one section per node.
func ResultsMarkdown(g domain.Graph, results []domain.Result) string {
	sorted := append([]domain.Result(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NodeID < sorted[j].NodeID })

	var sb strings.Builder
	sb.WriteString("# Results\n\n")
	sb.WriteString("| Node | Kind | Status | Runs |\n")
	sb.WriteString("|------|------|--------|------|\n")
	for _, res := range sorted {
		kind := ""
		if n, ok := g.Node(res.NodeID); ok {
			kind = n.Kind
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %d |\n", res.NodeID, kind, res.Status, res.Runs)
	}

	for _, res := range sorted {
		fmt.Fprintf(&sb, "\n## %s\n\n", res.NodeID)
		switch res.Status {
		case domain.StatusSuccess:
			sb.WriteString("```json\n")
			sb.WriteString(pretty(res.Value))
			sb.WriteString("\n```\n")
		case domain.StatusError:
			fmt.Fprintf(&sb, "> **error:** %s\n", res.Error)
		case domain.StatusIdle:
			if len(res.Missing) > 0 {
				fmt.Fprintf(&sb, "_waiting for: %s_\n", strings.Join(res.Missing, ", "))
			} else {
				sb.WriteString("_idle_\n")
			}
		default:
			sb.WriteString("_running_\n")
		}
	}
	return sb.String()
}

func pretty(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
