package telegram

import (
	"fmt"
	"html"
	"unicode/utf8"

	"github.com/kitbuilder587/textgen/internal/domain"
)

// MaxMessageLength - лимит телеграма на одно сообщение
const MaxMessageLength = 4096

// FormatCompletion режет ответ на сообщения не длиннее maxLen.
// Режем исходный текст, а экранируем каждый кусок отдельно, чтобы разрез
// не попадал внутрь &amp; или между <i> и </i>. Подпись не режется.
func FormatCompletion(resp *domain.GenerateResponse, maxLen int) []string {
	parts := SplitMessage(resp.Response, maxLen)

	footer := formatFooter(resp)
	if footer == "" {
		return parts
	}

	last := len(parts) - 1
	if len(parts[last])+len("\n\n")+len(footer) <= maxLen {
		parts[last] += "\n\n" + footer
		return parts
	}
	return append(parts, footer)
}

func formatFooter(resp *domain.GenerateResponse) string {
	switch {
	case resp.Model != "" && resp.TokensUsed > 0:
		return fmt.Sprintf("<i>%s · токенов: %d</i>", html.EscapeString(resp.Model), resp.TokensUsed)
	case resp.Model != "":
		return fmt.Sprintf("<i>%s</i>", html.EscapeString(resp.Model))
	default:
		return ""
	}
}

// SplitMessage делит неэкранированный текст и возвращает уже экранированные куски,
// каждый не длиннее maxLen байт после экранирования.
func SplitMessage(text string, maxLen int) []string {
	if text == "" {
		return []string{""}
	}

	var messages []string
	for len(text) > 0 {
		cut := findSplitPoint(text, maxLen)
		messages = append(messages, html.EscapeString(text[:cut]))
		text = text[cut:]
	}

	return messages
}

// findSplitPoint возвращает длину самого длинного префикса, который после
// экранирования влезает в maxLen. По возможности режем после пробела.
func findSplitPoint(text string, maxLen int) int {
	size := 0
	lastSpace := -1

	for i := 0; i < len(text); {
		r, width := utf8.DecodeRuneInString(text[i:])
		w := escapedWidth(r, width)

		if size+w > maxLen {
			if i == 0 {
				// maxLen меньше одного символа - отдаем символ целиком
				return width
			}
			if lastSpace > i/2 {
				return lastSpace
			}
			return i
		}

		size += w
		i += width
		if r == ' ' || r == '\n' {
			lastSpace = i
		}
	}

	return len(text)
}

func escapedWidth(r rune, width int) int {
	switch r {
	case '<', '>':
		return len("&lt;")
	case '&':
		return len("&amp;")
	case '\'', '"':
		return len("&#39;")
	default:
		return width
	}
}
