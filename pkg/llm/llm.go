package llm

import "context"

// NoResponse is returned by generators when the server reply carries no text.
const NoResponse = "No response generated"

// Generator is the minimal interface any model client must implement to be used by the handler
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}
