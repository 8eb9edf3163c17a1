package validator

import (
	"context"
	"errors"
	"time"

	"github.com/chaininsights/validator/internal/ledger"
	"github.com/chaininsights/validator/internal/nodes"
	"github.com/chaininsights/validator/internal/storage"
	"github.com/chaininsights/validator/pkg/modulerpc"
)

var (
	// ErrNotRegistered aborts a round when the validator's own key is not a
	// module of the subnet.
	ErrNotRegistered  = errors.New("validator key is not registered on the subnet")
	ErrInvalidRequest = errors.New("invalid query request")
)

const (
	roundCounterKey = "validator:round"
	lastRoundKey    = "validator:last_round"

	// Organic queries sample QuerySampleSize miners from the best TopMinersPool.
	QuerySampleSize = 3
	TopMinersPool   = 16
)

// PeerCaller performs one signed RPC against a miner module.
type PeerCaller interface {
	Call(ctx context.Context, addr modulerpc.Address, targetKey, method string, params, out any) error
}

type NodeResolver interface {
	Node(network string) (nodes.Node, error)
}

type ChallengeSource interface {
	GetRandomChallenge(network string) (challengeJSON string, expected string, err error)
}

type PromptSource interface {
	GetRandomPrompt(network string) (*storage.ValidationPrompt, error)
}

type ResponseCache interface {
	StoreResponse(promptID uint, minerKey, query, result string, isValid bool) error
}

type ReceiptStore interface {
	GetReceiptMinerMultiplier(minerKey string) (float64, error)
	StoreMinerReceipt(requestID, minerKey, promptHash, network string, ts time.Time) error
}

type MinerStore interface {
	UpdateMinerRank(minerKey string, rank float64) error
	StoreMinerMetadata(uid int, minerKey, address string, port int, network string) error
	UpdateMinerChallenges(minerKey string, failed, total int) error
	GetMinerByKey(minerKey, network string) (*storage.MinerDiscovery, error)
	GetMinersByNetwork(network string, limit int) ([]storage.MinerDiscovery, error)
}

// Peer is an eligible miner for the current round.
type Peer struct {
	UID     int
	Key     string
	Address modulerpc.Address
	Module  ledger.ModuleInfo
}

// RoundSummary is published after every round that reached scoring.
type RoundSummary struct {
	Round      int64           `json:"round"`
	Peers      int             `json:"peers"`
	Answered   int             `json:"answered"`
	Scores     map[int]float64 `json:"scores"`
	Weights    map[int]int     `json:"weights"`
	FinishedAt time.Time       `json:"finished_at"`
}
