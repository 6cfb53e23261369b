package llm

import "context"

// Completer is the text-completion collaborator. Implementations must honor ctx.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CompleterFunc adapts a plain function to Completer.
type CompleterFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// SourceCandidate is one extracted key offered to the model when matching a field.
type SourceCandidate struct {
	Key      string
	Value    string
	Document string
}

// FieldChoice is the parsed answer to a field matching prompt.
type FieldChoice struct {
	Key        string
	Confidence float64
	NoMatch    bool
}

// ContextVerdict is the model's judgement on whether a filled value suits its field.
type ContextVerdict struct {
	IsAppropriate        bool    `json:"is_appropriate"`
	Confidence           float64 `json:"confidence"`
	IssueDescription     string  `json:"issue_description,omitempty"`
	SuggestedAlternative string  `json:"suggested_alternative,omitempty"`
}
