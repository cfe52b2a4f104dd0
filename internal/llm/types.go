package llm

// Message is a single turn in a chat completion request.
type Message struct {
	Role    string
	Content string
}

// Chat roles accepted by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Options configures the OpenAI-compatible clients. BaseURL is optional
// and points completions at a self-hosted gateway when set.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	// Dimension is the expected embedding vector length; 0 disables the
	// check.
	Dimension int
}
