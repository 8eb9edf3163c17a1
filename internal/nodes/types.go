// Package nodes adapts blockchain full nodes to the small surface the
// generators and the challenge dispatcher need.
package nodes

import (
	"context"
	"errors"
)

// ConfirmationDepth keeps random samples clear of reorg-prone blocks.
const ConfirmationDepth = 6

var (
	ErrUnsupportedNetwork = errors.New("unsupported network")
	ErrEmptyBlock         = errors.New("block has no usable transactions")
)

type Node interface {
	Network() string
	CurrentBlockHeight(ctx context.Context) (int64, error)
	RandomTxFromBlock(ctx context.Context, height int64) (*Transaction, error)
	// BalanceAt returns the address balance observed at height, in the
	// network's smallest unit.
	BalanceAt(ctx context.Context, address string, height int64) (string, error)
}

type Transaction struct {
	TxID        string
	BlockHeight int64
	// Amounts in the network's display unit (BTC, ETH).
	InTotal   float64
	OutTotal  float64
	Addresses []string
	// BlockData is a JSON summary of the containing block.
	BlockData string
}

type blockSummary struct {
	Network   string `json:"network"`
	Height    int64  `json:"height"`
	Hash      string `json:"hash"`
	Timestamp uint64 `json:"timestamp"`
	TxCount   int    `json:"tx_count"`
}
