package chat

import (
	"context"
	"strings"
	"testing"

	"kbchat/internal/llm"
	"kbchat/internal/retrieval"
)

type stubTextGenerator struct {
	seen  []llm.Message
	reply string
	err   error
}

func (s *stubTextGenerator) Generate(_ context.Context, messages []llm.Message) (string, error) {
	s.seen = messages
	return s.reply, s.err
}

func TestGeneratorAnswerIncludesEvidence(t *testing.T) {
	stub := &stubTextGenerator{reply: "grounded answer"}
	g := NewGenerator(stub)

	evidence := []retrieval.Candidate{
		{ChunkID: "a", Content: "vacation policy is 25 days"},
		{ChunkID: "b", Content: "carry-over needs approval"},
	}

	answer, err := g.Answer(context.Background(), "how many vacation days", evidence)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "grounded answer" {
		t.Errorf("answer = %q", answer)
	}

	if len(stub.seen) != 2 || stub.seen[0].Role != llm.RoleSystem {
		t.Fatalf("unexpected messages: %+v", stub.seen)
	}
	user := stub.seen[1].Content
	for _, want := range []string{"vacation policy is 25 days", "carry-over needs approval", "how many vacation days"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
}

func TestGeneratorSmallTalk(t *testing.T) {
	stub := &stubTextGenerator{reply: "hi there!"}
	g := NewGenerator(stub)

	reply, err := g.SmallTalk(context.Background(), "hey")
	if err != nil {
		t.Fatalf("SmallTalk() error = %v", err)
	}
	if reply != "hi there!" {
		t.Errorf("reply = %q", reply)
	}
	if stub.seen[1].Content != "hey" {
		t.Errorf("user message = %q", stub.seen[1].Content)
	}
}
