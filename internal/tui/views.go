package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/kallerud/lotline/internal/models"
)

const (
	minListWidth = 28
	maxListWidth = 44
)

func (m *Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	listWidth := m.width / 3
	if listWidth < minListWidth {
		listWidth = minListWidth
	}
	if listWidth > maxListWidth {
		listWidth = maxListWidth
	}
	if m.controller.OpenConversationID() == "" {
		listWidth = m.width
	}

	list := m.renderList(listWidth, bodyHeight)
	body := list
	if threadWidth := m.width - listWidth - 1; m.controller.OpenConversationID() != "" && threadWidth > 10 {
		divider := strings.TrimRight(strings.Repeat(m.theme.Border.Render("|")+"\n", bodyHeight), "\n")
		thread := m.renderThread(threadWidth, bodyHeight)
		body = lipgloss.JoinHorizontal(lipgloss.Top, list, divider, thread)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderHeader() string {
	title := m.theme.Header.Render("lotline")
	badge := ""
	if total := m.store.UnreadTotal(); total > 0 {
		badge = " " + m.theme.Badge.Render(fmt.Sprintf("[%d unread]", total))
	}
	archived := ""
	if m.showArchived {
		archived = m.theme.Footer.Render("  showing archived")
	}
	return title + badge + archived
}

func (m *Model) renderFooter() string {
	if m.statusErr != "" {
		return m.theme.Error.Render(truncateLine(m.statusErr, m.width))
	}
	if m.composing {
		if m.sending {
			return m.theme.Compose.Render("> "+m.draft) + m.theme.Footer.Render("  sending...")
		}
		return m.theme.Compose.Render("> " + m.draft + "_")
	}
	help := "enter open  esc close  c compose  a archived  r refresh  q quit"
	return m.theme.Footer.Render(truncateLine(help, m.width))
}

func (m *Model) renderList(width, height int) string {
	conversations := m.conversations()
	if len(conversations) == 0 {
		empty := m.theme.Footer.Render("No conversations.")
		return lipgloss.NewStyle().Width(width).Height(height).Render(empty)
	}

	rowsPerItem := 2
	if m.cfg.CompactMode {
		rowsPerItem = 1
	}
	visible := height / rowsPerItem
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.selected >= visible {
		start = m.selected - visible + 1
	}

	var b strings.Builder
	for i := start; i < len(conversations) && i < start+visible; i++ {
		c := conversations[i]
		b.WriteString(m.renderListItem(c, i == m.selected, width))
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderListItem(c *models.Conversation, selected bool, width int) string {
	style := m.theme.ListItem
	switch {
	case selected:
		style = m.theme.Selected
	case c.Archived:
		style = m.theme.Archived
	case c.UnreadCount > 0:
		style = m.theme.Unread
	}

	marker := "  "
	if selected {
		marker = "> "
	}
	name := counterpartOf(c, m.selfID).Name
	if name == "" {
		name = counterpartOf(c, m.selfID).ID
	}
	badge := ""
	if c.UnreadCount > 0 {
		badge = fmt.Sprintf(" (%d)", c.UnreadCount)
	}
	line := truncateLine(marker+name+badge, width)

	if m.cfg.CompactMode {
		return style.Render(line)
	}

	preview := c.Subject
	if c.LastMessage != nil {
		preview = c.LastMessage.Content
	}
	previewLine := m.theme.Footer.Render(truncateLine("    "+strings.ReplaceAll(preview, "\n", " "), width))
	return style.Render(line) + "\n" + previewLine
}

func (m *Model) renderThread(width, height int) string {
	conversationID := m.controller.OpenConversationID()
	messages := m.store.Messages(conversationID)

	var lines []string
	for _, message := range messages {
		lines = append(lines, m.renderMessage(message, width)...)
	}
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderMessage(message *models.Message, width int) []string {
	senderStyle := m.theme.OtherSender
	sender := message.Sender.Name
	if message.Sender.ID == m.selfID {
		senderStyle = m.theme.OwnSender
		sender = "you"
	}
	if message.IsSystem {
		senderStyle = m.theme.System
		sender = "system"
	}

	head := senderStyle.Render(sender)
	if m.cfg.ShowTimestamps {
		head += " " + m.theme.Timestamp.Render(message.CreatedAt.Local().Format("15:04"))
	}

	body := wordwrap.String(message.Content, width-2)
	lines := []string{head}
	for _, line := range strings.Split(body, "\n") {
		lines = append(lines, "  "+line)
	}
	if message.Attachment != nil {
		lines = append(lines, "  "+m.theme.Footer.Render("attachment: "+message.Attachment.Name))
	}
	return lines
}

func counterpartOf(c *models.Conversation, selfID string) models.UserRef {
	if c.Buyer.ID == selfID {
		return c.Seller
	}
	return c.Buyer
}

func truncateLine(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "~"
}
