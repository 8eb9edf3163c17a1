package validator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"

	"github.com/chaininsights/validator/internal/config"
	"github.com/chaininsights/validator/internal/ledger"
	"github.com/chaininsights/validator/internal/nodes"
	"github.com/chaininsights/validator/internal/protocol"
	"github.com/chaininsights/validator/internal/storage"
	"github.com/chaininsights/validator/pkg/modulerpc"
)

const (
	selfKey          = "5SelfValidatorKey"
	expectedTxID     = "0xfeedbeef"
	expectedBalance  = "1000"
	testPromptID     = uint(7)
	testPromptText   = "What is the total amount of tx 0xfeedbeef in block 10?"
	cachedValidQuery = "MATCH (t:Transaction {tx_id: '0xfeedbeef'}) RETURN t.amount"
)

var errUnreachable = errors.New("connection refused")

// ---- ledger ----

type fakeLedger struct {
	mu        sync.Mutex
	modules   map[string]ledger.ModuleInfo
	addresses map[int]string
	voteErr   error
	votes     []ledger.VoteParams
}

func (f *fakeLedger) GetModules(context.Context, int) (ledger.ModulesResponse, error) {
	return ledger.ModulesResponse{Success: true, Data: f.modules}, nil
}

func (f *fakeLedger) GetAddresses(context.Context, int) (ledger.AddressesResponse, error) {
	return ledger.AddressesResponse{Success: true, Data: f.addresses}, nil
}

func (f *fakeLedger) Vote(_ context.Context, p ledger.VoteParams) (ledger.ExtrinsicHashResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, p)
	if f.voteErr != nil {
		return ledger.ExtrinsicHashResponse{}, f.voteErr
	}
	return ledger.ExtrinsicHashResponse{Success: true, Data: "0xhash"}, nil
}

func (f *fakeLedger) voteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.votes)
}

// ---- peers ----

type minerBehavior struct {
	network      string
	discoveryErr error
	fundsFlow    any
	balance      any
	query        string
	result       any
	delay        time.Duration
	panics       bool
}

type fakePeers struct {
	mu     sync.Mutex
	miners map[string]*minerBehavior
	calls  map[string][]string
}

func newFakePeers() *fakePeers {
	return &fakePeers{miners: map[string]*minerBehavior{}, calls: map[string][]string{}}
}

func honestMiner(network string) *minerBehavior {
	return &minerBehavior{
		network:   network,
		fundsFlow: expectedTxID,
		balance:   float64(1000),
		query:     cachedValidQuery,
		result:    []any{map[string]any{"amount": 1.5}},
	}
}

func (f *fakePeers) Call(ctx context.Context, _ modulerpc.Address, key, method string, params, out any) error {
	f.mu.Lock()
	b, ok := f.miners[key]
	f.calls[key] = append(f.calls[key], method)
	f.mu.Unlock()
	if !ok {
		return errUnreachable
	}
	if b.panics {
		panic("miner handler exploded")
	}
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var resp any
	switch method {
	case protocol.MethodDiscovery:
		if b.discoveryErr != nil {
			return b.discoveryErr
		}
		resp = protocol.Discovery{Network: b.network}
	case protocol.MethodChallenge:
		req := params.(protocol.ChallengeRequest)
		c := req.Challenge
		if c.ModelKind == protocol.ModelKindFundsFlow {
			c.Output = map[string]any{"tx_id": b.fundsFlow}
		} else {
			c.Output = map[string]any{"balance": b.balance}
		}
		resp = c
	case protocol.MethodLlmQuery:
		if b.query == "" {
			resp = protocol.LlmMessageOutputList{}
		} else {
			resp = protocol.LlmMessageOutputList{Outputs: []protocol.LlmMessageOutput{{Query: b.query, Result: b.result}}}
		}
	default:
		return fmt.Errorf("unknown method %s", method)
	}

	raw, err := sonic.Marshal(resp)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(raw, out)
}

// ---- nodes ----

type fakeNodes struct{}

func (fakeNodes) Node(network string) (nodes.Node, error) {
	if !protocol.IsSupportedNetwork(network) {
		return nil, nodes.ErrUnsupportedNetwork
	}
	return nil, nil
}

// ---- storage ----

type fakeChallenges struct {
	kind     string
	expected string
	err      error
}

func (f *fakeChallenges) GetRandomChallenge(string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	raw, err := sonic.MarshalString(protocol.Challenge{ModelKind: f.kind, BlockHeight: 10, Address: "0xaaaa"})
	return raw, f.expected, err
}

type fakePrompts struct {
	mu     sync.Mutex
	prompt *storage.ValidationPrompt
	err    error
}

func (f *fakePrompts) GetRandomPrompt(string) (*storage.ValidationPrompt, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.prompt
	cp.Responses = append([]storage.ValidationPromptResponse(nil), f.prompt.Responses...)
	return &cp, nil
}

type storedResponse struct {
	promptID uint
	minerKey string
	query    string
	result   string
	isValid  bool
}

type fakeResponses struct {
	mu     sync.Mutex
	stored []storedResponse
}

func (f *fakeResponses) StoreResponse(promptID uint, minerKey, query, result string, isValid bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, storedResponse{promptID, minerKey, query, result, isValid})
	return nil
}

type storedReceipt struct {
	requestID, minerKey, promptHash, network string
}

type fakeReceipts struct {
	mu          sync.Mutex
	multipliers map[string]float64
	receipts    []storedReceipt
}

func (f *fakeReceipts) GetReceiptMinerMultiplier(key string) (float64, error) {
	if m, ok := f.multipliers[key]; ok {
		return m, nil
	}
	return 1, nil
}

func (f *fakeReceipts) StoreMinerReceipt(requestID, minerKey, promptHash, network string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts = append(f.receipts, storedReceipt{requestID, minerKey, promptHash, network})
	return nil
}

type fakeMiners struct {
	mu         sync.Mutex
	ranks      map[string]float64
	metadata   map[string]storage.MinerDiscovery
	challenges map[string][2]int
	known      []storage.MinerDiscovery
}

func newFakeMiners() *fakeMiners {
	return &fakeMiners{
		ranks:      map[string]float64{},
		metadata:   map[string]storage.MinerDiscovery{},
		challenges: map[string][2]int{},
	}
}

func (f *fakeMiners) UpdateMinerRank(key string, rank float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranks[key] = rank
	return nil
}

func (f *fakeMiners) StoreMinerMetadata(uid int, key, address string, port int, network string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata[key] = storage.MinerDiscovery{UID: uid, MinerKey: key, MinerAddress: address, MinerIPPort: port, Network: network}
	return nil
}

func (f *fakeMiners) UpdateMinerChallenges(key string, failed, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.challenges[key] = [2]int{failed, total}
	return nil
}

func (f *fakeMiners) GetMinerByKey(key, network string) (*storage.MinerDiscovery, error) {
	for _, m := range f.known {
		if m.MinerKey == key && m.Network == network {
			return &m, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeMiners) GetMinersByNetwork(network string, limit int) ([]storage.MinerDiscovery, error) {
	var out []storage.MinerDiscovery
	for _, m := range f.known {
		if m.Network == network {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- weights ----

type memWeights struct {
	mu      sync.Mutex
	data    map[int]int
	saveErr error
	saves   int
}

func (m *memWeights) Load() (map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]int, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memWeights) Save(w map[int]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data = make(map[int]int, len(w))
	for k, v := range w {
		m.data[k] = v
	}
	return nil
}

func (m *memWeights) snapshot() map[int]int {
	w, _ := m.Load()
	return w
}

// ---- llm ----

type fakeLLM struct {
	verdict bool
	err     error
	calls   atomic.Int32
}

func (f *fakeLLM) ValidateQueryByPrompt(context.Context, string, string, string) (bool, error) {
	f.calls.Add(1)
	return f.verdict, f.err
}

func (f *fakeLLM) BuildPromptFromTxidAndBlock(context.Context, string, int64, string, string) (string, error) {
	return "", errors.New("not used")
}

// ---- redis ----

type fakeRedis struct {
	mu   sync.Mutex
	kv   map[string]string
	ints map[string]int64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{kv: map[string]string{}, ints: map[string]int64{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kv[key], nil
}

func (f *fakeRedis) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv[key] = value
	return nil
}

func (f *fakeRedis) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ints[key]++
	return f.ints[key], nil
}

func (f *fakeRedis) Expire(context.Context, string, time.Duration) error { return nil }
func (f *fakeRedis) Ping(context.Context) error                          { return nil }
func (f *fakeRedis) Close()                                              {}

// ---- fixture ----

type harness struct {
	v         *Validator
	ledger    *fakeLedger
	peers     *fakePeers
	prompts   *fakePrompts
	responses *fakeResponses
	receipts  *fakeReceipts
	miners    *fakeMiners
	weights   *memWeights
	llm       *fakeLLM
	redis     *fakeRedis
}

func newHarness(t interface{ Fatalf(string, ...any) }) *harness {
	h := &harness{
		ledger: &fakeLedger{
			modules:   map[string]ledger.ModuleInfo{selfKey: {UID: 0, Key: selfKey, Stake: 250000}},
			addresses: map[int]string{0: "10.0.0.1:9900"},
		},
		peers: newFakePeers(),
		prompts: &fakePrompts{prompt: &storage.ValidationPrompt{
			ID:      testPromptID,
			Prompt:  testPromptText,
			Network: protocol.NetworkBitcoin,
		}},
		responses: &fakeResponses{},
		receipts:  &fakeReceipts{multipliers: map[string]float64{}},
		miners:    newFakeMiners(),
		weights:   &memWeights{data: map[int]int{}},
		llm:       &fakeLLM{verdict: true},
		redis:     newFakeRedis(),
	}

	cfg := &config.ValidatorEnvConfig{
		ChainEnvConfig:    config.ChainEnvConfig{Netuid: 20, MaxAllowedWeights: 10},
		IterationInterval: time.Hour,
		ChallengeTimeout:  time.Second,
		QueryTimeout:      time.Second,
		LLMQueryTimeout:   time.Second,
	}
	v, err := NewValidator(cfg, selfKey, Dependencies{
		Ledger:          h.ledger,
		Peers:           h.peers,
		Nodes:           fakeNodes{},
		LLM:             h.llm,
		FundsFlow:       &fakeChallenges{kind: protocol.ModelKindFundsFlow, expected: expectedTxID},
		BalanceTracking: &fakeChallenges{kind: protocol.ModelKindBalanceTracking, expected: expectedBalance},
		Prompts:         h.prompts,
		Responses:       h.responses,
		Receipts:        h.receipts,
		Miners:          h.miners,
		Weights:         h.weights,
		Redis:           h.redis,
	})
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	h.v = v
	return h
}

// addMiner registers a module on the ledger with an address and behaviour.
func (h *harness) addMiner(uid int, key string, stake float64, b *minerBehavior) {
	h.ledger.modules[key] = ledger.ModuleInfo{UID: uid, Key: key, Stake: stake, Emission: float64(uid) * 10}
	h.ledger.addresses[uid] = fmt.Sprintf("10.0.1.%d:8091", uid)
	if b != nil {
		h.peers.miners[key] = b
	}
}

// cacheValid marks cachedValidQuery as a valid answer of key for the prompt.
func (h *harness) cacheValid(key string) {
	h.prompts.prompt.Responses = append(h.prompts.prompt.Responses, storage.ValidationPromptResponse{
		PromptID: testPromptID, MinerKey: key, Query: cachedValidQuery, IsValid: true,
	})
}
