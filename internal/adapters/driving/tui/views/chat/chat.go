// Package chat provides the conversation view of the TUI.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragsample/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/ragsample/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragsample/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragsample/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragsample/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
)

// chrome is the number of lines taken by the header, input and status bar.
const chrome = 6

type exchange struct {
	question string
	answer   *domain.Answer
	err      error
}

// View is the chat view: a scrolling transcript above a question input.
type View struct {
	ctx     context.Context
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	session driving.ChatSession

	input    *input.QuestionInput
	status   *status.Bar
	viewport viewport.Model
	spinner  spinner.Model

	exchanges []exchange
	pending   string
	thinking  bool

	width  int
	height int
}

// NewView creates a chat view over a conversation session.
func NewView(s *styles.Styles, km *keymap.KeyMap, session driving.ChatSession) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		ctx:      context.Background(),
		styles:   s,
		keymap:   km,
		session:  session,
		input:    input.NewQuestionInput(s),
		status:   status.NewBar(s, km),
		viewport: viewport.New(80, 24-chrome),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(s.Source),
		),
		width:  80,
		height: 24,
	}
	v.refresh()
	return v
}

// WithContext sets the context used for questions.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)

	case messages.AnswerReceived:
		v.thinking = false
		v.pending = ""
		v.exchanges = append(v.exchanges, exchange{question: msg.Question, answer: msg.Answer, err: msg.Err})
		if msg.Failed() {
			v.status.SetState(status.StateError)
			v.status.SetMessage(errorText(msg.Err))
		} else {
			v.status.SetState(status.StateReady)
			v.status.SetMessage("")
		}
		v.status.SetExchangeCount(v.answered())
		v.refresh()
		return v, nil

	case spinner.TickMsg:
		if !v.thinking {
			return v, nil
		}
		v.spinner, cmd = v.spinner.Update(msg)
		v.refresh()
		return v, cmd
	}

	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	var cmd tea.Cmd
	k := msg.String()

	switch {
	case keymap.Matches(k, v.keymap.Help):
		v.status.ToggleHelp()
		return v, nil

	case keymap.Matches(k, v.keymap.ScrollUp), keymap.Matches(k, v.keymap.ScrollDown):
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case keymap.Matches(k, v.keymap.Reset):
		if v.thinking {
			return v, nil
		}
		v.session.Reset()
		v.exchanges = nil
		v.status.Clear()
		v.refresh()
		return v, func() tea.Msg { return messages.ConversationReset{} }

	case keymap.Matches(k, v.keymap.Send):
		question := v.input.Question()
		if question == "" || v.thinking {
			return v, nil
		}
		v.thinking = true
		v.pending = question
		v.input.Reset()
		v.status.SetState(status.StateThinking)
		v.refresh()
		return v, tea.Batch(v.ask(question), v.spinner.Tick)
	}

	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask runs the question against the session off the UI loop.
func (v *View) ask(question string) tea.Cmd {
	ctx, session := v.ctx, v.session
	return func() tea.Msg {
		answer, err := session.Ask(ctx, question)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

// View renders the chat view.
func (v *View) View() string {
	header := v.styles.Title.Render("RAG chat") + "  " +
		v.styles.Muted.Render("answers are grounded in the ingested documents")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		v.viewport.View(),
		v.input.View(),
		v.status.View(),
	)
}

// SetDimensions resizes the view.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-chrome, 1)
	v.input.SetWidth(width)
	v.status.SetWidth(width)
	v.refresh()
}

// Thinking reports whether a question is awaiting its answer.
func (v *View) Thinking() bool {
	return v.thinking
}

// Exchanges returns the number of questions asked, failed ones included.
func (v *View) Exchanges() int {
	return len(v.exchanges)
}

// Transcript renders the conversation without the surrounding chrome.
func (v *View) Transcript() string {
	width := max(v.width-2, 20)
	var blocks []string

	for _, ex := range v.exchanges {
		blocks = append(blocks, v.renderQuestion(ex.question, width))
		switch {
		case ex.err != nil || ex.answer == nil:
			blocks = append(blocks, v.styles.Error.Width(width).Render("Error: "+errorText(ex.err)))
		default:
			blocks = append(blocks, v.styles.Answer.Width(width).Render(ex.answer.Text))
			for _, label := range SourceLabels(ex.answer.Sources) {
				blocks = append(blocks, v.styles.Source.Render("  - "+label))
			}
		}
		blocks = append(blocks, "")
	}

	if v.thinking {
		blocks = append(blocks,
			v.renderQuestion(v.pending, width),
			v.spinner.View()+v.styles.Muted.Render(" thinking"),
		)
	}

	if len(blocks) == 0 {
		return v.styles.Muted.Render("Ask anything about the ingested books and news.")
	}
	return strings.Join(blocks, "\n")
}

func (v *View) renderQuestion(question string, width int) string {
	return v.styles.Question.Width(width).Render("You: " + question)
}

func (v *View) refresh() {
	v.viewport.SetContent(v.Transcript())
	v.viewport.GotoBottom()
}

func (v *View) answered() int {
	n := 0
	for _, ex := range v.exchanges {
		if ex.err == nil && ex.answer != nil {
			n++
		}
	}
	return n
}

// SourceLabels names the distinct documents behind the matches, by title,
// url or file name, in match order.
func SourceLabels(matches []domain.SearchMatch) []string {
	seen := make(map[string]bool, len(matches))
	var labels []string

	for _, m := range matches {
		meta := m.Segment.Metadata
		label := meta.Value(domain.MetadataTitle)
		if url := meta.Value(domain.MetadataURL); url != "" {
			if label == "" {
				label = url
			} else {
				label += " (" + url + ")"
			}
		}
		if label == "" {
			label = meta.Value(domain.MetadataFileName)
		}
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}

func errorText(err error) string {
	if err == nil {
		return "no answer"
	}
	return err.Error()
}
