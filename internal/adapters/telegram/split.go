package telegram

import "strings"

// MessageLimit ограничивает длину сообщения Telegram в символах.
const MessageLimit = 4096

// SplitMessage делит текст на части не длиннее limit символов.
// Сначала ищется граница раздела (пустая строка), затем перевод строки,
// и только потом жёсткий разрез, который не попадает внутрь HTML-тега.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || limit > MessageLimit {
		limit = MessageLimit
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	for len(runes) > 0 {
		if len(runes) <= limit {
			parts = appendChunk(parts, runes)
			break
		}
		cut := splitPoint(runes, limit)
		parts = appendChunk(parts, runes[:cut])
		runes = trimLeadingNewlines(runes[cut:])
	}
	return parts
}

func splitPoint(runes []rune, limit int) int {
	window := runes[:limit]
	if i := lastIndex(window, []rune("\n\n")); i > 0 {
		return i
	}
	if i := lastIndex(window, []rune("\n")); i > 0 {
		return i
	}
	// Не режем посреди тега: отступаем к последнему незакрытому '<'.
	for i := limit - 1; i > 0; i-- {
		if window[i] == '>' {
			break
		}
		if window[i] == '<' {
			return i
		}
	}
	return limit
}

func lastIndex(runes, sep []rune) int {
	for i := len(runes) - len(sep); i >= 0; i-- {
		match := true
		for j := range sep {
			if runes[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func trimLeadingNewlines(runes []rune) []rune {
	for len(runes) > 0 && runes[0] == '\n' {
		runes = runes[1:]
	}
	return runes
}

func appendChunk(parts []string, runes []rune) []string {
	chunk := strings.TrimSpace(string(runes))
	if chunk == "" {
		return parts
	}
	return append(parts, chunk)
}
