package chat

import (
	"context"
	"fmt"
	"strings"

	"kbchat/internal/llm"
	"kbchat/internal/retrieval"
)

// TextGenerator is the LLM collaborator behind answer generation.
// *llm.Client satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, messages []llm.Message) (string, error)
}

const answerSystemPrompt = `You are a helpful assistant answering questions from a curated knowledge base.
Answer using ONLY the provided context. If the context does not contain the answer, say so plainly.
Be concise and direct.`

const smallTalkSystemPrompt = `You are a friendly assistant for a knowledge base chat.
Reply to the user's small talk warmly and briefly, and offer to help with knowledge base questions.`

// Generator produces user-facing answers from retrieved evidence.
type Generator struct {
	llm TextGenerator
}

// NewGenerator creates an answer generator backed by the given LLM.
func NewGenerator(textGen TextGenerator) *Generator {
	return &Generator{llm: textGen}
}

// Answer generates a grounded answer over the evidence.
func (g *Generator) Answer(ctx context.Context, message string, evidence []retrieval.Candidate) (string, error) {
	var contextBuilder strings.Builder
	contextBuilder.WriteString("--- Context from knowledge base ---\n\n")
	for i, c := range evidence {
		fmt.Fprintf(&contextBuilder, "[%d] %s\n\n", i+1, c.Content)
	}
	contextBuilder.WriteString("--- End context ---")

	answer, err := g.llm.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: answerSystemPrompt},
		{Role: llm.RoleUser, Content: contextBuilder.String() + "\n\nQuestion: " + message},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return answer, nil
}

// SmallTalk generates a conversational reply with no evidence.
func (g *Generator) SmallTalk(ctx context.Context, message string) (string, error) {
	reply, err := g.llm.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: smallTalkSystemPrompt},
		{Role: llm.RoleUser, Content: message},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate small talk: %w", err)
	}
	return reply, nil
}
