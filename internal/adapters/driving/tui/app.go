package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/notewise/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/notewise/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/notewise/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/notewise/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/notewise/internal/core/domain"
)

const (
	inputHeight = 3

	defaultWidth  = 80
	defaultHeight = 24
)

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	input      textarea.Model
	transcript viewport.Model
	statusBar  *status.Bar

	// pending is the message awaiting a reply; it is shown in the
	// transcript but not yet part of the service's history.
	pending string
	busy    bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a chat application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	input := textarea.New()
	input.Placeholder = "Ask about your notes..."
	input.ShowLineNumbers = false
	input.CharLimit = 0
	// Enter sends; the keymap's Newline binding inserts breaks instead.
	input.KeyMap.InsertNewline.SetEnabled(false)
	input.Focus()

	bar := status.NewBar(s, km)
	bar.SetModel(ports.ModelLabel)

	a := &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		input:      input,
		transcript: viewport.New(defaultWidth, defaultHeight),
		statusBar:  bar,
	}
	a.resize(defaultWidth, defaultHeight)
	return a, nil
}

// WithContext sets the context used for model calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		tea.SetWindowTitle("notewise chat"),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.SendRequested:
		return a, a.send(msg.Text)

	case messages.ReplyReceived:
		a.handleReply(msg)
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return a, tea.Quit

	case keymap.Matches(k, a.keymap.Reset):
		a.ports.Chat.Reset()
		a.pending = ""
		a.busy = false
		a.statusBar.Clear()
		a.refresh()
		return a, nil

	case keymap.Matches(k, a.keymap.Send):
		text := strings.TrimSpace(a.input.Value())
		if text == "" || a.busy {
			return a, nil
		}
		a.input.Reset()
		return a, func() tea.Msg { return messages.SendRequested{Text: text} }

	case keymap.Matches(k, a.keymap.Newline):
		a.input.InsertString("\n")
		return a, nil

	case keymap.Matches(k, a.keymap.ScrollUp), keymap.Matches(k, a.keymap.ScrollDown):
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// send shows text as pending and asks the model in the background.
func (a *App) send(text string) tea.Cmd {
	a.pending = text
	a.busy = true
	a.statusBar.Clear()
	a.statusBar.SetState(status.StateThinking)
	a.refresh()

	ctx := a.ctx
	chat := a.ports.Chat
	conversation := chat.ConversationID()
	return func() tea.Msg {
		reply, err := chat.Send(ctx, text)
		return messages.ReplyReceived{Conversation: conversation, Reply: reply, Err: err}
	}
}

func (a *App) handleReply(msg messages.ReplyReceived) {
	// A reset while waiting makes the reply stale.
	if msg.Conversation != a.ports.Chat.ConversationID() {
		return
	}
	a.busy = false

	if msg.Err != nil {
		// The failed turn is not part of the history; give the text back.
		a.input.SetValue(a.pending)
		a.pending = ""
		a.statusBar.SetError(domain.UserMessage(msg.Err))
		a.refresh()
		return
	}

	a.pending = ""
	a.statusBar.Clear()
	a.refresh()
}

// refresh re-renders the transcript and scrolls to the newest message.
func (a *App) refresh() {
	history := a.ports.Chat.History()
	a.statusBar.SetTurns(len(history))
	a.transcript.SetContent(a.renderTranscript(history))
	a.transcript.GotoBottom()
}

func (a *App) renderTranscript(history []domain.ChatMessage) string {
	if len(history) == 0 && a.pending == "" {
		return a.styles.Muted.Render("Start typing to chat with the model about your notes.")
	}

	width := a.transcript.Width - a.styles.Transcript.GetHorizontalFrameSize() - a.styles.Message.GetHorizontalFrameSize()
	if width < 10 {
		width = 10
	}
	body := a.styles.Message.Width(width)

	var b strings.Builder
	write := func(role domain.ChatRole, content string) {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if role == domain.RoleUser {
			b.WriteString(a.styles.User.Render("You"))
		} else {
			b.WriteString(a.styles.Assistant.Render("Assistant"))
		}
		b.WriteString("\n")
		b.WriteString(body.Render(content))
	}

	for _, m := range history {
		write(m.Role, m.Content)
	}
	if a.pending != "" {
		write(domain.RoleUser, a.pending)
		b.WriteString("\n\n")
		b.WriteString(a.styles.Muted.Render("..."))
	}
	return a.styles.Transcript.Render(b.String())
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	a.input.SetWidth(width - a.styles.Input.GetHorizontalFrameSize())
	a.input.SetHeight(inputHeight)
	a.statusBar.SetWidth(width)

	// Title line, input with its border, and the status bar.
	chrome := 1 + inputHeight + a.styles.Input.GetVerticalFrameSize() + 1
	a.transcript.Width = width
	a.transcript.Height = max(height-chrome, 1)
	a.refresh()
}

// View implements tea.Model.
func (a *App) View() string {
	title := a.styles.Title.Render("notewise chat")
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		a.transcript.View(),
		a.styles.Input.Render(a.input.View()),
		a.statusBar.View(),
	)
}

// Run starts the program in the alternate screen and blocks until it exits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Busy reports whether a reply is outstanding.
func (a *App) Busy() bool {
	return a.busy
}

// Ready reports whether the terminal size is known.
func (a *App) Ready() bool {
	return a.ready
}

// Input returns the text being typed.
func (a *App) Input() string {
	return a.input.Value()
}

// StatusBar returns the status bar component.
func (a *App) StatusBar() *status.Bar {
	return a.statusBar
}
