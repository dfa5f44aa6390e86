package title

import "strings"

const (
	// MaxLength 是可以原样作为标题的最大字符数。
	MaxLength = 50

	truncateLength = 47
	ellipsis       = "..."
	minWordTitle   = 20
)

type window struct {
	min, max int // min exclusive, max inclusive
}

var (
	sentenceTerminators = []string{".", "?", "!"}
	sentenceWindow      = window{min: 10, max: 100}

	clauseDelimiters = []string{",", ";", ":", " - ", " и ", " или "}
	clauseWindow     = window{min: 15, max: 70}
)

// Derive 根据会话的第一条用户消息生成标题。
// 优先级：整句 > 短语 > 按词截断 > 硬截断。所有位置按字符计算。
func Derive(firstMessage string) string {
	query := strings.TrimSpace(strings.ReplaceAll(firstMessage, "\n", " "))
	runes := []rune(query)

	if len(runes) <= MaxLength {
		return query
	}

	for _, terminator := range sentenceTerminators {
		pos := indexRunes(runes, []rune(terminator))
		if sentenceWindow.contains(pos) {
			return strings.TrimSpace(string(runes[:pos+1]))
		}
	}

	for _, delimiter := range clauseDelimiters {
		pos := indexRunes(runes, []rune(delimiter))
		if clauseWindow.contains(pos) {
			return strings.TrimSpace(string(runes[:pos]))
		}
	}

	if byWords := accumulateWords(query); len([]rune(byWords)) >= minWordTitle {
		return byWords
	}

	return string(runes[:truncateLength]) + ellipsis
}

// accumulateWords 逐词拼接，直到再加一个词（含空格）会超过 MaxLength。
func accumulateWords(query string) string {
	var (
		builder strings.Builder
		length  int
	)
	for _, word := range strings.Fields(query) {
		wordLen := len([]rune(word))
		if length+wordLen+1 > MaxLength {
			break
		}
		builder.WriteString(word)
		builder.WriteByte(' ')
		length += wordLen + 1
	}
	return strings.TrimSpace(builder.String())
}

func (w window) contains(pos int) bool {
	return pos > w.min && pos <= w.max
}

// indexRunes returns the rune offset of the first occurrence of sub, or -1.
func indexRunes(haystack, sub []rune) int {
	if len(sub) == 0 || len(sub) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(sub) <= len(haystack); i++ {
		for j := range sub {
			if haystack[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
