// Package tui is the live watch view: the conversation list, the open
// thread and a compose line, kept current by the background sync loops.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kallerud/lotline/internal/models"
	"github.com/kallerud/lotline/internal/session"
	"github.com/kallerud/lotline/internal/store"
)

// Config holds display settings for the watch view.
type Config struct {
	Theme          string
	ShowTimestamps bool
	CompactMode    bool
}

type storeChangedMsg struct {
	kind store.ChangeKind
}

type sendResultMsg struct {
	err error
}

type clearStatusMsg struct{}

// Model is the bubbletea model for the watch view.
type Model struct {
	controller *session.Controller
	store      *store.Store
	selfID     string
	theme      Theme
	cfg        Config

	width  int
	height int

	showArchived bool
	selected     int
	composing    bool
	sending      bool
	draft        string
	statusErr    string
}

// NewModel builds the watch view model.
func NewModel(cfg Config, controller *session.Controller, selfID string) *Model {
	return &Model{
		controller: controller,
		store:      controller.Store(),
		selfID:     selfID,
		theme:      themeByName(cfg.Theme),
		cfg:        cfg,
	}
}

// Run starts the watch view and blocks until the user quits.
func Run(cfg Config, controller *session.Controller, selfID string) error {
	model := NewModel(cfg, controller, selfID)
	program := tea.NewProgram(model, tea.WithAltScreen())

	unsubscribe := controller.Store().Subscribe(func(change store.Change) {
		program.Send(storeChangedMsg{kind: change.Kind})
	})
	defer unsubscribe()

	_, err := program.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil

	case storeChangedMsg:
		m.clampSelection()
		return m, nil

	case sendResultMsg:
		m.sending = false
		if typed.err != nil {
			// Failed sends keep the typed content so the user can retry.
			m.composing = true
			m.statusErr = typed.err.Error()
			return m, clearStatusAfter(4 * time.Second)
		}
		m.draft = ""
		m.composing = false
		return m, nil

	case clearStatusMsg:
		m.statusErr = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(typed)
	}
	return m, nil
}

func (m *Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.composing {
		return m.handleComposeKey(key)
	}

	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.conversations())-1 {
			m.selected++
		}
	case "enter":
		if c := m.selectedConversation(); c != nil {
			if err := m.controller.Open(c.ID); err != nil {
				m.statusErr = err.Error()
				return m, clearStatusAfter(4 * time.Second)
			}
		}
	case "esc":
		m.controller.Close()
	case "a":
		m.showArchived = !m.showArchived
		m.clampSelection()
	case "r":
		m.controller.ForceRefresh()
	case "c":
		// Resumes a preserved draft if a previous send failed.
		if m.controller.OpenConversationID() != "" {
			m.composing = true
		}
	}
	return m, nil
}

func (m *Model) handleComposeKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.composing = false
		if !m.sending {
			m.draft = ""
		}
	case tea.KeyEnter:
		if m.sending {
			return m, nil
		}
		draft := strings.TrimSpace(m.draft)
		if draft == "" {
			// Nothing to send; stay in compose mode.
			return m, nil
		}
		// The draft stays in place until the send resolves; only a
		// successful sendResultMsg clears it.
		m.sending = true
		return m, m.sendCmd(m.controller.OpenConversationID(), draft)
	case tea.KeyBackspace:
		if len(m.draft) > 0 {
			runes := []rune(m.draft)
			m.draft = string(runes[:len(runes)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.draft += string(key.Runes)
		if key.Type == tea.KeySpace {
			m.draft += " "
		}
	}
	return m, nil
}

func (m *Model) sendCmd(conversationID, content string) tea.Cmd {
	composer := m.controller.Composer()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, err := composer.Send(ctx, models.Draft{
			ConversationID: conversationID,
			Content:        content,
		})
		return sendResultMsg{err: err}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func (m *Model) conversations() []*models.Conversation {
	return m.store.Conversations(m.showArchived)
}

func (m *Model) selectedConversation() *models.Conversation {
	conversations := m.conversations()
	if m.selected < 0 || m.selected >= len(conversations) {
		return nil
	}
	return conversations[m.selected]
}

func (m *Model) clampSelection() {
	if count := len(m.conversations()); m.selected >= count {
		m.selected = count - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}
