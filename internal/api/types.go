// Package api serves the validator's public query endpoint.
package api

import (
	"context"

	"github.com/chaininsights/validator/internal/protocol"
	"github.com/chaininsights/validator/internal/validator"
)

const QueryRoute = "/api/v1/query"

type Querier interface {
	QueryMiner(ctx context.Context, req protocol.LlmQueryRequest) (*protocol.QueryResponse, error)
	LastRound(ctx context.Context) (*validator.RoundSummary, error)
}

// Response is the envelope used for errors and status payloads.
type Response[T any] struct {
	Body  T       `json:"body"`
	Error *string `json:"error,omitempty"`
}

type HealthStatus struct {
	Status    string                  `json:"status"`
	LastRound *validator.RoundSummary `json:"last_round,omitempty"`
}

func newResponse[T any](body T, err error) Response[T] {
	if err != nil {
		msg := err.Error()
		return Response[T]{Body: body, Error: &msg}
	}
	return Response[T]{Body: body}
}
