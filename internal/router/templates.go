package router

import "strings"

// Canned replies for rule-matched chitchat. Keyed by the normalized
// trigger phrase; the catch-all covers rule matches with no dedicated
// template.
var chitchatTemplates = map[string]string{
	"hello":     "Hi there! Ask me anything about the knowledge base.",
	"hi":        "Hi there! Ask me anything about the knowledge base.",
	"hey":       "Hey! What would you like to know?",
	"thanks":    "You're welcome! Happy to help with anything else.",
	"thank you": "You're welcome! Happy to help with anything else.",
	"bye":       "Goodbye! Come back any time.",
	"goodbye":   "Goodbye! Come back any time.",
}

const defaultChitchatTemplate = "Happy to chat! If you have a question about the knowledge base, just ask."

// TemplateFor returns the canned reply for a rule-matched chitchat
// message. Matching is case-insensitive on the trimmed message, falling
// back to a prefix match so "hello!" and "thanks a lot" still hit their
// templates.
func TemplateFor(message string) string {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.TrimRight(normalized, "!.?, ")
	if reply, ok := chitchatTemplates[normalized]; ok {
		return reply
	}
	for trigger, reply := range chitchatTemplates {
		if strings.HasPrefix(normalized, trigger+" ") {
			return reply
		}
	}
	return defaultChitchatTemplate
}
