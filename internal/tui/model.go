// Package tui is the interactive chat front-end. It is presentation glue
// only: it hands a query and the session to the assistant and renders the
// answer, sources and citations that come back.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdulwahidHusein/LawChat/internal/domain"
	"github.com/AbdulwahidHusein/LawChat/internal/service"
	"github.com/AbdulwahidHusein/LawChat/internal/session"
)

// AssistantPort is the TUI-facing subset of the assistant.
type AssistantPort interface {
	Ask(ctx context.Context, sess *session.Session, query string) (service.Answer, error)
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	assistant  AssistantPort
	sess       *session.Session
	input      textinput.Model
	viewport   viewport.Model
	lastAnswer *service.Answer
	status     string
	ready      bool
}

// New creates a new chat model instance.
func New(assistant AssistantPort, sess *session.Session) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your legal documents"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		assistant: assistant,
		sess:      sess,
		input:     ti,
		viewport:  vp,
		status:    "Ready. Type a question and press Enter.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + stats, status, input frame, spacer
		vh := msg.Height - reserved - ch
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.status = "Searching legal documents..."
			answer, err := m.assistant.Ask(context.Background(), m.sess, q)
			if err != nil {
				m.status = statusForError(err)
			} else {
				m.lastAnswer = &answer
				m.input.SetValue("")
				if answer.Cached {
					m.status = fmt.Sprintf("Answered from cache with %d sources", len(answer.Sources))
				} else {
					m.status = fmt.Sprintf("Answered with %d sources", len(answer.Sources))
				}
			}
			m.viewport.SetContent(m.renderTranscript())
			m.viewport.GotoBottom()
			return m, nil
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("LawChat — Legal Research Assistant")
	stats := m.renderStats()
	chat := chatBoxStyle.Width(m.viewport.Width - 2).Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + stats + "\n" + chat + "\n" + input + "\n" + status
}

func (m Model) renderStats() string {
	s := m.sess.Stats()
	return statsStyle.Render(fmt.Sprintf("session %s  queries: %d  duration: %dm  sources: %d",
		m.sess.ID()[:8], s.Queries, int(s.Duration.Minutes()), s.SourcesFound))
}

func (m Model) renderTranscript() string {
	messages := m.sess.Messages()
	if len(messages) == 0 {
		return m.renderSuggestions()
	}
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You: ") + msg.Content + "\n\n")
		case domain.RoleAssistant:
			b.WriteString(assistantStyle.Render("LawChat: ") + highlightCitations(msg.Content) + "\n\n")
		}
	}
	if m.lastAnswer != nil && len(m.lastAnswer.Sources) > 0 {
		b.WriteString(m.renderSources(m.lastAnswer.Sources))
	}
	return b.String()
}

func (m Model) renderSources(sources []domain.RetrievedSource) string {
	var b strings.Builder
	b.WriteString(sourceTitleStyle.Render("Sources") + "\n")
	for i, src := range sources {
		preview := src.Text
		if r := []rune(preview); len(r) > 200 {
			preview = string(r[:200]) + "..."
		}
		fmt.Fprintf(&b, "%s %s (score %.3f)\n  %s\n",
			citationStyle.Render(fmt.Sprintf("[Source %d]", i+1)), src.SourceID, src.Score, preview)
	}
	return b.String()
}

func (m Model) renderSuggestions() string {
	var b strings.Builder
	b.WriteString("Example questions:\n\n")
	for _, q := range suggestedQuestions[:6] {
		b.WriteString("  • " + q + "\n")
	}
	return b.String()
}

// highlightCitations styles [Source N] markers so they stand out against the
// answer text.
func highlightCitations(content string) string {
	for i := 1; i <= 9; i++ {
		tag := fmt.Sprintf("[Source %d]", i)
		if strings.Contains(content, tag) {
			content = strings.ReplaceAll(content, tag, citationStyle.Render(tag))
		}
	}
	return content
}

func statusForError(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return "Please enter a valid question (3 to 500 characters)."
	case errors.Is(err, domain.ErrAuth):
		return "Credential rejected. Check your API keys."
	case errors.Is(err, domain.ErrConnection):
		return "Vector index unreachable. Check the configured host."
	default:
		return "Error: " + err.Error()
	}
}

var suggestedQuestions = []string{
	"What are the fundamental rights in the Ethiopian Constitution?",
	"What is the penalty for theft under Ethiopian law?",
	"How does Ethiopian law define citizenship?",
	"What are the powers of the federal government?",
	"What criminal penalties exist for corruption?",
	"How are human rights protected in Ethiopia?",
}

var (
	headerStyle      = lipgloss.NewStyle().Bold(true)
	statsStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	chatBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	citationStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceTitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
