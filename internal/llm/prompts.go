package llm

import (
	"fmt"
	"strings"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

const validateSystemPrompt = `You review database queries written by blockchain analytics agents.
The target network is %s. Decide whether the query, when executed against a graph or
relational index of that network, answers the user's question.
Reply with exactly one word: "yes" or "no".`

const buildSystemPrompt = `You write natural questions about %s blockchain data.
Rephrase the question you are given so it reads like a user request. Keep every
transaction id and block number exactly as written. Reply with the question only.`

func validateMessages(prompt, query, network string) []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: fmt.Sprintf(validateSystemPrompt, network)},
		{Role: RoleUser, Content: fmt.Sprintf("Question:\n%s\n\nQuery:\n%s", prompt, query)},
	}
}

func buildMessages(question, network string) []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: fmt.Sprintf(buildSystemPrompt, network)},
		{Role: RoleUser, Content: question},
	}
}

// FillTemplate substitutes {txid} and {block} placeholders.
func FillTemplate(template, txid string, block int64) string {
	return strings.NewReplacer(
		"{txid}", txid,
		"{block}", fmt.Sprintf("%d", block),
	).Replace(template)
}

// parseVerdict reads a yes/no answer. Anything that is not an explicit yes
// counts as a rejection.
func parseVerdict(content string) bool {
	v := strings.ToLower(strings.TrimSpace(content))
	v = strings.Trim(v, "\"'`.!")
	return strings.HasPrefix(v, "yes") || v == "true" || v == "valid"
}
