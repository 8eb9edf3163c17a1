// Package protocol defines the records exchanged with miners over the peer RPC
// surface, together with their validation rules.
package protocol

import "errors"

// Peer RPC method names.
const (
	MethodDiscovery = "discovery"
	MethodChallenge = "challenge"
	MethodLlmQuery  = "llm_query"
)

// Supported networks.
const (
	NetworkBitcoin  = "bitcoin"
	NetworkEthereum = "ethereum"
)

// Challenge kinds.
const (
	ModelKindFundsFlow       = "funds_flow"
	ModelKindBalanceTracking = "balance_tracking"
)

// LLM message types as understood by miners.
const (
	LlmMessageTypeUser = 0
	LlmMessageTypeAI   = 1
)

const ChallengeCount = 2

// ErrMalformedPayload is returned when a miner response misses required fields.
var ErrMalformedPayload = errors.New("malformed payload")

// Networks lists every network the validator monitors.
var Networks = []string{NetworkBitcoin, NetworkEthereum}

// Discovery is the miner's self-description returned by the discovery call.
type Discovery struct {
	Network string `json:"network"`
	Version string `json:"version,omitempty"`
	GraphDB string `json:"graph_db,omitempty"`
}

// Challenge is a task descriptor; Output is filled in by the miner.
type Challenge struct {
	ModelKind      string         `json:"model_kind"`
	BlockHeight    int64          `json:"block_height"`
	InTotalAmount  *float64       `json:"in_total_amount,omitempty"`
	OutTotalAmount *float64       `json:"out_total_amount,omitempty"`
	TxIDLast6Chars string         `json:"tx_id_last_6_chars,omitempty"`
	Address        string         `json:"address,omitempty"`
	Checksum       string         `json:"checksum,omitempty"`
	Output         map[string]any `json:"output,omitempty"`
}

// ChallengeRequest is the payload of the challenge call.
type ChallengeRequest struct {
	Challenge Challenge `json:"challenge"`
}

type LlmMessage struct {
	Type    int    `json:"type"`
	Content string `json:"content"`
}

type LlmMessageList struct {
	Messages []LlmMessage `json:"messages"`
}

// LlmQueryPayload is the payload of the llm_query call.
type LlmQueryPayload struct {
	LlmMessagesList LlmMessageList `json:"llm_messages_list"`
}

// LlmMessageOutput carries the query a miner ran and its result.
type LlmMessageOutput struct {
	Type   int    `json:"type,omitempty"`
	Query  string `json:"query"`
	Result any    `json:"result"`
}

type LlmMessageOutputList struct {
	Outputs []LlmMessageOutput `json:"outputs"`
}

// ChallengeMinerResponse aggregates one miner's results for a round.
type ChallengeMinerResponse struct {
	Network                 string
	FundsFlowActual         string
	FundsFlowExpected       string
	BalanceTrackingActual   string
	BalanceTrackingExpected string
	QueryValidationResult   *bool
}

// LlmQueryRequest is the body accepted by the public query API.
type LlmQueryRequest struct {
	Prompt   []LlmMessage `json:"prompt"`
	Network  string       `json:"network"`
	MinerKey string       `json:"miner_key,omitempty"`
}

// QueryResponse is returned by the public query API.
type QueryResponse struct {
	RequestID  string   `json:"request_id"`
	Timestamp  string   `json:"timestamp"`
	MinerKeys  []string `json:"miner_keys"`
	PromptHash string   `json:"prompt_hash"`
	Response   []any    `json:"response"`
}
