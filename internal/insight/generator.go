package insight

import (
	"context"
	"errors"

	"github.com/wonny/astrostocks/internal/contracts"
)

// Generator produces an insight for a prompt
// ⭐ SSOT: every language-model call goes through a Generator
type Generator interface {
	Generate(ctx context.Context, p Prompt) (contracts.Insight, error)
	Name() string
}

// ErrNotConfigured is returned by a provider without credentials
var ErrNotConfigured = errors.New("insight provider not configured")

// unconfigured fails every call; it stands in for a provider whose API
// key is missing so that runs fail instead of the process.
type unconfigured struct {
	name string
}

func (u unconfigured) Generate(context.Context, Prompt) (contracts.Insight, error) {
	return contracts.Insight{}, ErrNotConfigured
}

func (u unconfigured) Name() string {
	return u.name
}
