package telegram

import (
	"strings"
)

// ParsePrompt достает промпт из сообщения.
// "/ask текст" и "/generate текст" -> текст, обычный текст уходит как есть.
// ok=false для остальных команд.
func ParsePrompt(text string) (prompt string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return text, true
	}

	command, rest, _ := strings.Cut(trimmed, " ")
	// /ask@MyBot в групповых чатах
	command, _, _ = strings.Cut(strings.ToLower(command), "@")

	switch command {
	case "/ask", "/generate":
		return strings.TrimSpace(rest), true
	default:
		return "", false
	}
}

// commandName: "/Help@MyBot arg" -> "help"
func commandName(text string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	first, _, _ = strings.Cut(first, "@")
	return strings.ToLower(strings.TrimPrefix(first, "/"))
}
