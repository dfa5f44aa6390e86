package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const basePrompt = `You are explAiner, a legal AI assistant. Answer briefly and to the point.`

const (
	defaultLanguageHint      = ` Answer in Russian.`
	multilingualLanguageHint = ` Answer in the language the user writes in.`
)

const styleHint = ` If you do not know the answer, say so honestly. Use markdown for formatting.`

const factCheckHint = ` Check facts and cite sources of information whenever possible.`

// Options 调整单次回答的行为。
type Options struct {
	// Multilingual 为 false 时固定使用俄语回答。
	Multilingual bool
	FactCheck    bool
}

func buildSystemPrompt(opts Options) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	if opts.Multilingual {
		b.WriteString(multilingualLanguageHint)
	} else {
		b.WriteString(defaultLanguageHint)
	}
	b.WriteString(styleHint)
	if opts.FactCheck {
		b.WriteString(factCheckHint)
	}
	return b.String()
}

const previewLength = 100

// DemoAnswer is the reply served when no language model is configured.
func DemoAnswer(prompt string) string {
	preview := prompt
	if utf8.RuneCountInString(preview) > previewLength {
		preview = string([]rune(preview)[:previewLength]) + "..."
	}

	var b strings.Builder
	b.WriteString("AI answer (offline mode)\n\n")
	fmt.Fprintf(&b, "Your request: %s\n\n", preview)
	b.WriteString("Configure ARK_API_KEY and Model (or ARK_ACCESS_KEY/ARK_SECRET_KEY) to get full answers.\n\n")
	b.WriteString("Until then I am running in demo mode with basic replies.")
	return b.String()
}
