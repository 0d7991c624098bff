// Package tui provides an interactive terminal search view over the
// recall facade: a query input on top, ranked results below, driven by
// hybrid search on enter.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driving"
)

// visibleResults caps how many hits the view renders.
const visibleResults = 8

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// resultsMsg carries a completed search back into the update loop.
type resultsMsg struct {
	query   string
	results []domain.SearchResult
	err     error
}

// Model is the bubbletea model for the search view.
type Model struct {
	service   driving.RecallService
	input     textinput.Model
	spinner   spinner.Model
	results   []domain.SearchResult
	lastQuery string
	searching bool
	err       error
	width     int
}

// NewModel creates the search view bound to the facade.
func NewModel(service driving.RecallService) Model {
	input := textinput.New()
	input.Placeholder = "search your memory..."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		service: service,
		input:   input,
		spinner: sp,
		width:   80,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			query := strings.TrimSpace(m.input.Value())
			if query == "" || m.searching {
				return m, nil
			}
			m.searching = true
			m.err = nil
			return m, tea.Batch(m.spinner.Tick, m.search(query))
		}

	case resultsMsg:
		m.searching = false
		m.lastQuery = msg.query
		m.results = msg.results
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// search issues the hybrid query off the update loop.
func (m Model) search(query string) tea.Cmd {
	service := m.service
	return func() tea.Msg {
		results, err := service.Search(context.Background(), driving.SearchRequest{
			Query:   query,
			Options: domain.SearchOptions{},
		})
		return resultsMsg{query: query, results: results, err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("aifbin-recall"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.searching:
		b.WriteString(m.spinner.View() + " searching...\n")
	case m.err != nil:
		b.WriteString(errStyle.Render("error: "+m.err.Error()) + "\n")
	case m.lastQuery != "" && len(m.results) == 0:
		b.WriteString(fmt.Sprintf("no results for %q\n", m.lastQuery))
	default:
		m.renderResults(&b)
	}

	b.WriteString("\n" + helpStyle.Render("enter: search  esc: quit"))
	return b.String()
}

// renderResults writes the ranked hits.
func (m Model) renderResults(b *strings.Builder) {
	limit := len(m.results)
	if limit > visibleResults {
		limit = visibleResults
	}

	for i := 0; i < limit; i++ {
		r := &m.results[i]
		b.WriteString(scoreStyle.Render(fmt.Sprintf("%.4f", r.Score)))
		b.WriteString("  " + truncate(firstLine(r.Chunk.Text), m.width-10) + "\n")
		b.WriteString("        " + sourceStyle.Render(
			fmt.Sprintf("%s#%d", r.Chunk.SourceFile, r.Chunk.ChunkIndex)) + "\n")
	}
}

// firstLine returns text up to the first newline.
func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

// truncate caps a string at max runes.
func truncate(s string, max int) string {
	if max < 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, service driving.RecallService) error {
	program := tea.NewProgram(NewModel(service), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
