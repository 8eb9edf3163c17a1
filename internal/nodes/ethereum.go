package nodes

import (
	"context"
	"fmt"
	"math/big"
	"math/rand/v2"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/protocol"
)

var weiPerEther = new(big.Float).SetInt(big.NewInt(1e18))

// ethChain is the subset of ethclient.Client the adapter uses.
type ethChain interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

type EthereumNode struct {
	chain ethChain
}

func DialEthereumNode(ctx context.Context, rpcURL string) (*EthereumNode, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return &EthereumNode{chain: client}, nil
}

func (e *EthereumNode) Network() string { return protocol.NetworkEthereum }

func (e *EthereumNode) CurrentBlockHeight(ctx context.Context) (int64, error) {
	n, err := e.chain.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	return int64(n), nil
}

func (e *EthereumNode) RandomTxFromBlock(ctx context.Context, height int64) (*Transaction, error) {
	block, err := e.chain.BlockByNumber(ctx, big.NewInt(height))
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", height, err)
	}
	txs := block.Transactions()
	if len(txs) == 0 {
		return nil, fmt.Errorf("%w: ethereum block %d", ErrEmptyBlock, height)
	}

	chainID, err := e.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}

	data, err := sonic.MarshalString(blockSummary{
		Network:   protocol.NetworkEthereum,
		Height:    height,
		Hash:      block.Hash().Hex(),
		Timestamp: block.Time(),
		TxCount:   len(txs),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal block summary: %w", err)
	}

	out := summarizeEthTx(txs[rand.IntN(len(txs))], types.LatestSignerForChainID(chainID))
	out.BlockHeight = height
	out.BlockData = data

	log.Debug().Int64("block", height).Str("txid", out.TxID).Msg("sampled ethereum transaction")
	return out, nil
}

// BalanceAt returns the account balance in wei at height.
func (e *EthereumNode) BalanceAt(ctx context.Context, address string, height int64) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid ethereum address %q", address)
	}
	bal, err := e.chain.BalanceAt(ctx, common.HexToAddress(address), big.NewInt(height))
	if err != nil {
		return "", fmt.Errorf("balance at %d: %w", height, err)
	}
	return bal.String(), nil
}

func summarizeEthTx(tx *types.Transaction, signer types.Signer) *Transaction {
	value := weiToEther(tx.Value())
	out := &Transaction{
		TxID:     tx.Hash().Hex(),
		InTotal:  value,
		OutTotal: value,
	}
	if from, err := types.Sender(signer, tx); err == nil {
		out.Addresses = append(out.Addresses, from.Hex())
	}
	if to := tx.To(); to != nil {
		out.Addresses = append(out.Addresses, to.Hex())
	}
	return out
}

func weiToEther(wei *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther).Float64()
	return f
}
