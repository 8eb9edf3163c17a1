// Package generator runs the background producers that keep a backlog of
// challenges and validation prompts per network.
package generator

import (
	"context"
	"time"

	"github.com/chaininsights/validator/internal/nodes"
)

const (
	KindPrompt          = "prompt"
	KindFundsFlow       = "funds_flow"
	KindBalanceTracking = "balance_tracking"
)

type ChallengeStore interface {
	StoreChallenge(challengeJSON, expected, network string, threshold int) error
}

type PromptStore interface {
	StorePrompt(prompt, modelType, data, network string, threshold int) error
}

type NodeResolver interface {
	Node(network string) (nodes.Node, error)
	Networks() []string
}

// job is one periodic producer for a (kind, network) pair. produce builds an
// item and returns the write that persists it.
type job struct {
	kind      string
	network   string
	frequency time.Duration
	produce   func(ctx context.Context, node nodes.Node) (func() error, error)
}
