package llm

import (
	"fmt"
	"strings"

	"github.com/chaininsights/validator/internal/config"
)

const BackendOpenAI = "openai"

type factory func(cfg *config.LLMEnvConfig) (LLMInterface, error)

var backends = map[string]factory{
	BackendOpenAI: func(cfg *config.LLMEnvConfig) (LLMInterface, error) { return NewOpenAI(cfg) },
}

// New builds the backend named by LLM_TYPE.
func New(cfg *config.LLMEnvConfig) (LLMInterface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	f, ok := backends[strings.ToLower(cfg.LLMType)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.LLMType)
	}
	return f(cfg)
}
