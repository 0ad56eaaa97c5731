package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/meysamhadeli/codai-scope/constants/lipgloss"
	"github.com/meysamhadeli/codai-scope/session"
	tree_models "github.com/meysamhadeli/codai-scope/tree_model/models"
	"github.com/muesli/reflow/wordwrap"
)

const (
	excerptLines     = 6
	descriptionWidth = 76
)

// Tree renders the visible rows of the tree with their scope marks.
func Tree(state session.State) string {
	if len(state.Tree) == 0 {
		return lipgloss.Gray.Render("(empty tree)")
	}

	var sb strings.Builder
	for _, entry := range state.Tree {
		sb.WriteString(strings.Repeat("  ", entry.Depth))
		sb.WriteString(mark(entry))
		sb.WriteString(" ")

		name := entry.Name
		if entry.Type == tree_models.Dir {
			arrow := "▸"
			if entry.Expanded {
				arrow = "▾"
			}
			name = fmt.Sprintf("%s %s/", arrow, entry.Name)
			if entry.FileCount != nil {
				name += lipgloss.Gray.Render(fmt.Sprintf(" (%d)", *entry.FileCount))
			}
		}

		switch {
		case entry.Central:
			sb.WriteString(lipgloss.Yellow.Render(name))
		case entry.InScope:
			sb.WriteString(name)
		default:
			sb.WriteString(lipgloss.Gray.Render(name))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ScopeSummary renders the pinned and external files in a box.
func ScopeSummary(state session.State) string {
	var lines []string
	lines = append(lines, lipgloss.Info.Render("Scope"))
	lines = append(lines, fmt.Sprintf("excluded entries: %d", len(state.Scope.ExcludedPaths)))

	for _, p := range state.Scope.CentralFiles {
		lines = append(lines, lipgloss.Yellow.Render("* "+p))
	}
	for _, f := range state.Scope.ExternalFiles {
		lines = append(lines, lipgloss.BlueSky.Render("+ "+f.Path))
	}
	return lipgloss.BoxStyle.Render(strings.Join(lines, "\n"))
}

// ContextList renders the context items in list order. Excerpts are highlighted with the
// given chroma theme; an empty theme leaves them plain.
func ContextList(state session.State, theme string) (string, error) {
	if len(state.Context) == 0 {
		return lipgloss.Gray.Render("(no context)"), nil
	}

	var sb strings.Builder
	sb.WriteString(lipgloss.Info.Render(fmt.Sprintf("Context: %s (%d selected of %d)", state.Channel, len(state.Selected), len(state.Context))))
	sb.WriteString("\n")

	// Rows are numbered from 1 to line up with hypothesis file indices.
	for i, item := range state.Context {
		box := "[ ]"
		if item.Checked {
			box = lipgloss.Green.Render("[x]")
		}
		sb.WriteString(fmt.Sprintf("%2d %s %s %s %s\n", i+1, box, item.FilePath,
			lipgloss.Gray.Render(fmt.Sprintf("%.2f", item.Score)),
			lipgloss.Gray.Render(item.Source)))

		if item.Excerpt == "" {
			continue
		}
		excerpt := trimLines(item.Excerpt, excerptLines)
		if theme != "" {
			highlighted, err := Highlight(excerpt, item.FilePath, theme)
			if err != nil {
				return "", err
			}
			excerpt = highlighted
		}
		sb.WriteString(indent(excerpt, "     "))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// Hypotheses renders the hypothesis list with the file paths each one points at.
func Hypotheses(state session.State) string {
	if len(state.Hypotheses) == 0 {
		return lipgloss.Gray.Render("(no hypotheses)")
	}

	var sb strings.Builder
	for _, h := range state.Hypotheses {
		box := "( )"
		if h.Selected {
			box = lipgloss.Green.Render("(x)")
		}
		sb.WriteString(fmt.Sprintf("%s %s %s\n", box, lipgloss.BlueSky.Render(h.Title), lipgloss.Gray.Render(fmt.Sprintf("%.0f%%", h.Confidence*100))))
		if h.Description != "" {
			sb.WriteString(indent(wordwrap.String(h.Description, descriptionWidth), "    ") + "\n")
		}
		for _, idx := range h.FileIndices {
			// File indices are 1-based.
			position := idx - 1
			if position < 0 || position >= len(state.Context) {
				sb.WriteString(lipgloss.Red.Render(fmt.Sprintf("    - #%d (not in list)", idx)) + "\n")
				continue
			}
			sb.WriteString(fmt.Sprintf("    - %s\n", state.Context[position].FilePath))
		}
	}
	return sb.String()
}

// Highlight colours code for the terminal using the lexer matching filePath.
func Highlight(code string, filePath string, theme string) (string, error) {
	language := "plaintext"
	if lexer := lexers.Match(filepath.Base(filePath)); lexer != nil {
		language = lexer.Config().Name
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, code, language, "terminal256", theme); err != nil {
		return "", fmt.Errorf("failed to highlight %s: %w", filePath, err)
	}
	return buf.String(), nil
}

func mark(entry session.TreeEntry) string {
	switch {
	case entry.Central:
		return lipgloss.Yellow.Render("[*]")
	case entry.Excluded:
		return "[ ]"
	default:
		return lipgloss.Green.Render("[x]")
	}
}

func trimLines(text string, max int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > max {
		lines = append(lines[:max], "...")
	}
	return strings.Join(lines, "\n")
}

func indent(text string, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
