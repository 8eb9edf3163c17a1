// Package ledger provides a client for the ledger gateway which exposes the
// subnet's module registry and accepts weight votes.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/config"
)

// Ledger is a client wrapper for the ledger gateway HTTP API.
type Ledger struct {
	client  *resty.Client
	BaseURL string
}

// NewLedger creates a new Ledger client using the provided environment configuration.
func NewLedger(cfg *config.LedgerEnvConfig) (*Ledger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if cfg.LedgerURL == "" {
		return nil, fmt.Errorf("ledger url cannot be empty")
	}

	timeout := cfg.LedgerTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.LedgerURL).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTimeout(timeout)

	return &Ledger{
		client:  client,
		BaseURL: cfg.LedgerURL,
	}, nil
}

func postJSON[T any](ctx context.Context, client *resty.Client, path string, body any) (LedgerResponse[T], error) {
	var result LedgerResponse[T]
	resp, err := client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("post request failed")
		return LedgerResponse[T]{}, fmt.Errorf("post %s: %w", path, err)
	}
	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).Str("path", path).Msg("post non-2xx")
		return LedgerResponse[T]{}, fmt.Errorf("request returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Error != nil {
		log.Error().Interface("error", result.Error).Str("path", path).Msg("response contains error")
		return LedgerResponse[T]{}, fmt.Errorf("response error: %v", result.Error)
	}
	return result, nil
}

func getJSON[T any](ctx context.Context, client *resty.Client, path string) (LedgerResponse[T], error) {
	var result LedgerResponse[T]
	resp, err := client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("get request failed")
		return LedgerResponse[T]{}, fmt.Errorf("get %s: %w", path, err)
	}
	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).Str("path", path).Msg("get non-2xx")
		return LedgerResponse[T]{}, fmt.Errorf("request returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Error != nil {
		log.Error().Interface("error", result.Error).Str("path", path).Msg("response contains error")
		return LedgerResponse[T]{}, fmt.Errorf("response error: %v", result.Error)
	}
	return result, nil
}

// GetModules fetches every registered module of the subnet keyed by module key.
func (l *Ledger) GetModules(ctx context.Context, netuid int) (ModulesResponse, error) {
	return getJSON[map[string]ModuleInfo](ctx, l.client, fmt.Sprintf("/subnet/%d/modules", netuid))
}

// GetAddresses fetches the "host:port" address of every module keyed by uid.
func (l *Ledger) GetAddresses(ctx context.Context, netuid int) (AddressesResponse, error) {
	return getJSON[map[int]string](ctx, l.client, fmt.Sprintf("/subnet/%d/addresses", netuid))
}

// Vote submits weights for the given uids and returns the extrinsic hash.
func (l *Ledger) Vote(ctx context.Context, params VoteParams) (ExtrinsicHashResponse, error) {
	if len(params.Uids) != len(params.Weights) {
		return ExtrinsicHashResponse{}, fmt.Errorf("uids and weights must have the same length, got %d and %d", len(params.Uids), len(params.Weights))
	}
	return postJSON[string](ctx, l.client, "/subnet/vote", params)
}
