package chat

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/manuasd05/weatherbot/internal/infra/llm/groq"
)

var encoding *tiktoken.Tiktoken

func init() {
	// Best effort. Offline environments fall back to the length heuristic.
	encoding, _ = tiktoken.GetEncoding("cl100k_base")
}

func countTokens(text string) int {
	if encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return len(text)/4 + 1
}

// HistoryWindow returns the trailing n turns.
func HistoryWindow(history []Turn, n int) []Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// BuildMessages assembles the model input: system prompt, trailing history
// window, current user message. When the assembled prompt exceeds the token
// budget, the oldest history turns are dropped first; the system prompt and
// the current message always survive.
func BuildMessages(systemPrompt string, history []Turn, window int, userMessage string, tokenBudget int) []groq.Message {
	tail := HistoryWindow(history, window)

	fixed := countTokens(systemPrompt) + countTokens(userMessage)
	budget := tokenBudget - fixed

	// Walk backwards so the newest turns are kept.
	kept := 0
	for i := len(tail) - 1; i >= 0; i-- {
		cost := countTokens(tail[i].Content)
		if budget-cost < 0 {
			break
		}
		budget -= cost
		kept++
	}
	tail = tail[len(tail)-kept:]

	messages := make([]groq.Message, 0, len(tail)+2)
	messages = append(messages, groq.Message{Role: "system", Content: systemPrompt})
	for _, turn := range tail {
		messages = append(messages, groq.Message{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, groq.Message{Role: "user", Content: userMessage})
	return messages
}

// TailMessages converts the trailing n history turns for the second model
// call, whose prompt already embeds everything else.
func TailMessages(history []Turn, n int) []groq.Message {
	tail := HistoryWindow(history, n)
	messages := make([]groq.Message, 0, len(tail))
	for _, turn := range tail {
		messages = append(messages, groq.Message{Role: string(turn.Role), Content: turn.Content})
	}
	return messages
}
