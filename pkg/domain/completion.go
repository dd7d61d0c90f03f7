package domain

type CompletionRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}
