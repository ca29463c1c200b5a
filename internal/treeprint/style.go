package treeprint

import "github.com/charmbracelet/lipgloss"

var (
	operatorColor = lipgloss.Color("#8BC34A")
	terminalColor = lipgloss.Color("#2196F3")
)

// Styler colors operator and terminal labels for terminal output.
type Styler struct {
	Operator lipgloss.Style
	Terminal lipgloss.Style
}

// DefaultStyler uses bold green operators and blue terminals.
func DefaultStyler() Styler {
	return Styler{
		Operator: lipgloss.NewStyle().Foreground(operatorColor).Bold(true),
		Terminal: lipgloss.NewStyle().Foreground(terminalColor),
	}
}

// ASCII renders expr like the package-level ASCII, with styled labels.
func (s Styler) ASCII(expr string) (string, error) {
	root, err := Build(expr)
	if err != nil {
		return "", err
	}
	return root.render(s.label), nil
}

func (s Styler) label(n *Node) string {
	if len(n.Children) == 0 {
		return s.Terminal.Render(n.Label)
	}
	return s.Operator.Render(n.Label)
}
