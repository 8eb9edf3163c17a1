package nodes

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/protocol"
)

const satoshisPerBitcoin = 1e8

type (
	rpcRequest struct {
		JSONRPC string `json:"jsonrpc"`
		ID      int64  `json:"id"`
		Method  string `json:"method"`
		Params  []any  `json:"params"`
	}

	rpcError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}

	rpcResponse[T any] struct {
		Result T         `json:"result"`
		Error  *rpcError `json:"error"`
	}

	btcScriptPubKey struct {
		Address string `json:"address"`
	}

	btcVout struct {
		Value        float64         `json:"value"`
		ScriptPubKey btcScriptPubKey `json:"scriptPubKey"`
	}

	btcVin struct {
		Coinbase string   `json:"coinbase"`
		Prevout  *btcVout `json:"prevout"`
	}

	btcTx struct {
		TxID string    `json:"txid"`
		Vin  []btcVin  `json:"vin"`
		Vout []btcVout `json:"vout"`
	}

	btcBlock struct {
		Hash   string  `json:"hash"`
		Height int64   `json:"height"`
		Time   uint64  `json:"time"`
		Tx     []btcTx `json:"tx"`
	}
)

// BitcoinNode talks to a bitcoind JSON-RPC endpoint.
type BitcoinNode struct {
	client *resty.Client
	nextID atomic.Int64
}

func NewBitcoinNode(rpcURL string) *BitcoinNode {
	client := resty.New().
		SetBaseURL(rpcURL).
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	return &BitcoinNode{client: client}
}

func (b *BitcoinNode) Network() string { return protocol.NetworkBitcoin }

func call[T any](ctx context.Context, b *BitcoinNode, method string, params ...any) (T, error) {
	var out rpcResponse[T]
	if params == nil {
		params = []any{}
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "1.0", ID: b.nextID.Add(1), Method: method, Params: params}).
		SetResult(&out).
		SetError(&out).
		Post("")
	if err != nil {
		return out.Result, fmt.Errorf("%s: %w", method, err)
	}
	if out.Error != nil {
		return out.Result, fmt.Errorf("%s: rpc error %d: %s", method, out.Error.Code, out.Error.Message)
	}
	if resp.IsError() {
		return out.Result, fmt.Errorf("%s status %d: %s", method, resp.StatusCode(), resp.String())
	}
	return out.Result, nil
}

func (b *BitcoinNode) CurrentBlockHeight(ctx context.Context) (int64, error) {
	return call[int64](ctx, b, "getblockcount")
}

func (b *BitcoinNode) block(ctx context.Context, height int64) (*btcBlock, error) {
	hash, err := call[string](ctx, b, "getblockhash", height)
	if err != nil {
		return nil, err
	}
	// Verbosity 3 includes prevouts so input totals can be computed.
	blk, err := call[btcBlock](ctx, b, "getblock", hash, 3)
	if err != nil {
		return nil, err
	}
	return &blk, nil
}

func (b *BitcoinNode) RandomTxFromBlock(ctx context.Context, height int64) (*Transaction, error) {
	blk, err := b.block(ctx, height)
	if err != nil {
		return nil, err
	}

	candidates := make([]btcTx, 0, len(blk.Tx))
	for _, tx := range blk.Tx {
		if !isCoinbase(tx) {
			candidates = append(candidates, tx)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: bitcoin block %d", ErrEmptyBlock, height)
	}
	tx := candidates[rand.IntN(len(candidates))]

	data, err := sonic.MarshalString(blockSummary{
		Network:   protocol.NetworkBitcoin,
		Height:    blk.Height,
		Hash:      blk.Hash,
		Timestamp: blk.Time,
		TxCount:   len(blk.Tx),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal block summary: %w", err)
	}

	out := &Transaction{TxID: tx.TxID, BlockHeight: height, BlockData: data}
	seen := map[string]struct{}{}
	addAddress := func(a string) {
		if _, ok := seen[a]; a != "" && !ok {
			seen[a] = struct{}{}
			out.Addresses = append(out.Addresses, a)
		}
	}
	for _, in := range tx.Vin {
		if in.Prevout != nil {
			out.InTotal += in.Prevout.Value
			addAddress(in.Prevout.ScriptPubKey.Address)
		}
	}
	for _, vout := range tx.Vout {
		out.OutTotal += vout.Value
		addAddress(vout.ScriptPubKey.Address)
	}

	log.Debug().Int64("block", height).Str("txid", tx.TxID).Msg("sampled bitcoin transaction")
	return out, nil
}

// BalanceAt returns the net satoshi movement of address within the block at
// height. bitcoind keeps no address index, so this is the block-local delta
// rather than a running balance.
func (b *BitcoinNode) BalanceAt(ctx context.Context, address string, height int64) (string, error) {
	blk, err := b.block(ctx, height)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(blockBalanceDelta(blk, address), 10), nil
}

func blockBalanceDelta(blk *btcBlock, address string) int64 {
	var delta int64
	for _, tx := range blk.Tx {
		for _, in := range tx.Vin {
			if in.Prevout != nil && in.Prevout.ScriptPubKey.Address == address {
				delta -= toSatoshis(in.Prevout.Value)
			}
		}
		for _, vout := range tx.Vout {
			if vout.ScriptPubKey.Address == address {
				delta += toSatoshis(vout.Value)
			}
		}
	}
	return delta
}

func isCoinbase(tx btcTx) bool {
	return len(tx.Vin) > 0 && tx.Vin[0].Coinbase != ""
}

func toSatoshis(btc float64) int64 {
	return int64(math.Round(btc * satoshisPerBitcoin))
}
