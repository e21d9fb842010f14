package llm

import "context"

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the language-model collaborator. Generate must respect ctx
// cancellation; callers bound every call with a hard timeout and substitute
// a local fallback reply on any error.
type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}
