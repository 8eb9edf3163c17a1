package ledger

import "context"

// LedgerInterface is the subset of the ledger gateway used by the validator.
type LedgerInterface interface {
	GetModules(ctx context.Context, netuid int) (ModulesResponse, error)
	GetAddresses(ctx context.Context, netuid int) (AddressesResponse, error)
	Vote(ctx context.Context, params VoteParams) (ExtrinsicHashResponse, error)
}

type LedgerResponse[T any] struct {
	StatusCode int            `json:"statusCode"`
	Success    bool           `json:"success"`
	Data       T              `json:"data"`
	Error      map[string]any `json:"error"`
}

type (
	ModulesResponse       = LedgerResponse[map[string]ModuleInfo]
	AddressesResponse     = LedgerResponse[map[int]string]
	ExtrinsicHashResponse = LedgerResponse[string]
)

// ModuleInfo is a registered module's on-chain state, keyed by its SS58 key.
type ModuleInfo struct {
	UID       int     `json:"uid"`
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	Stake     float64 `json:"stake"`
	Emission  float64 `json:"emission"`
	Incentive float64 `json:"incentive"`
	Dividends float64 `json:"dividends"`
}

type VoteParams struct {
	Netuid  int    `json:"netuid"`
	Key     string `json:"key"`
	Uids    []int  `json:"uids"`
	Weights []int  `json:"weights"`
}
