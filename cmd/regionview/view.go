package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var helpStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#666666"))

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Browse the records of a spool file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := renderFile(args[0], true)
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprint(cmd.OutOrStdout(), content)
			return err
		}
		p := tea.NewProgram(newViewModel(args[0], content, err), tea.WithAltScreen())
		_, runErr := p.Run()
		if runErr != nil {
			return runErr
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

type viewModel struct {
	err      error
	filename string
	content  string
	vp       viewport.Model
	ready    bool
}

func newViewModel(filename, content string, err error) *viewModel {
	return &viewModel{filename: filename, content: content, err: err}
}

func (m *viewModel) Init() tea.Cmd {
	return nil
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "g", "home":
			m.vp.GotoTop()
			return m, nil
		case "G", "end":
			m.vp.GotoBottom()
			return m, nil
		}

	case tea.WindowSizeMsg:
		height := msg.Height - 1
		if !m.ready {
			m.vp = viewport.New(msg.Width, height)
			m.vp.SetContent(m.content)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = height
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *viewModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	help := "↑/↓ scroll • g/G top/bottom • q quit"
	if m.err != nil {
		help = errorStyle.Render("decode stopped: "+m.err.Error()) + "  " + help
	}
	return m.vp.View() + "\n" + helpStyle.Render(fmt.Sprintf("%3.f%% • %s", m.vp.ScrollPercent()*100, help))
}
