// File path: internal/llm/providers/local.go
package providers

import (
	"context"
	"fmt"
	"regexp"
)

var tableLineRe = regexp.MustCompile(`(?m)^Table:\s*([A-Za-z0-9_]+)`)

// LocalProvider is a deterministic offline fallback used when no API key is
// configured. It proposes a trivial preview query for the first table it can
// find in the prompt context so the pipeline stays exercisable end to end.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	for _, msg := range messages {
		if match := tableLineRe.FindStringSubmatch(msg.Content); match != nil {
			return fmt.Sprintf("SELECT * FROM %s LIMIT 50", match[1]), nil
		}
	}
	return "", fmt.Errorf("no table context found in prompt")
}

func (l *LocalProvider) Name() string {
	return "local"
}
