package generator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaininsights/validator/internal/config"
	"github.com/chaininsights/validator/internal/nodes"
	"github.com/chaininsights/validator/internal/protocol"
)

type fakeNode struct {
	mu        sync.Mutex
	network   string
	head      int64
	failFirst int
	calls     int
}

func (f *fakeNode) Network() string { return f.network }

func (f *fakeNode) CurrentBlockHeight(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFirst {
		return 0, errors.New("node unavailable")
	}
	return f.head, nil
}

func (f *fakeNode) RandomTxFromBlock(_ context.Context, height int64) (*nodes.Transaction, error) {
	return &nodes.Transaction{
		TxID:        "0xabcdef0123456789",
		BlockHeight: height,
		InTotal:     1.5,
		OutTotal:    1.25,
		Addresses:   []string{"0xaaaa"},
		BlockData:   `{"height":1}`,
	}, nil
}

func (f *fakeNode) BalanceAt(context.Context, string, int64) (string, error) {
	return "42000", nil
}

type fakeResolver struct{ nodes map[string]nodes.Node }

func (r *fakeResolver) Node(network string) (nodes.Node, error) {
	n, ok := r.nodes[network]
	if !ok {
		return nil, nodes.ErrUnsupportedNetwork
	}
	return n, nil
}

func (r *fakeResolver) Networks() []string {
	var out []string
	for _, n := range protocol.Networks {
		if _, ok := r.nodes[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

type storedChallenge struct {
	json, expected, network string
	threshold               int
}

type fakeChallengeStore struct {
	mu    sync.Mutex
	items []storedChallenge
}

func (s *fakeChallengeStore) StoreChallenge(challengeJSON, expected, network string, threshold int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, storedChallenge{challengeJSON, expected, network, threshold})
	return nil
}

func (s *fakeChallengeStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type fakePromptStore struct {
	mu      sync.Mutex
	prompts []string
}

func (s *fakePromptStore) StorePrompt(prompt, _, _, _ string, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return nil
}

func (s *fakePromptStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type fakeLLM struct {
	onBuild func()
}

func (f *fakeLLM) ValidateQueryByPrompt(context.Context, string, string, string) (bool, error) {
	return true, nil
}

func (f *fakeLLM) BuildPromptFromTxidAndBlock(_ context.Context, txid string, _ int64, _, _ string) (string, error) {
	if f.onBuild != nil {
		f.onBuild()
	}
	return "what happened in " + txid, nil
}

func testConfig(freq time.Duration) *config.GeneratorEnvConfig {
	return &config.GeneratorEnvConfig{
		PromptFrequency:                   freq,
		PromptThreshold:                   10,
		FundsFlowChallengeFrequency:       freq,
		FundsFlowChallengeThreshold:       20,
		BalanceTrackingChallengeFrequency: freq,
		BalanceTrackingChallengeThreshold: 30,
	}
}

type fixture struct {
	gen     *Generator
	node    *fakeNode
	ff, bt  *fakeChallengeStore
	prompts *fakePromptStore
	llm     *fakeLLM
}

func newFixture(freq time.Duration) *fixture {
	f := &fixture{
		node:    &fakeNode{network: protocol.NetworkEthereum, head: 100},
		ff:      &fakeChallengeStore{},
		bt:      &fakeChallengeStore{},
		prompts: &fakePromptStore{},
		llm:     &fakeLLM{},
	}
	resolver := &fakeResolver{nodes: map[string]nodes.Node{protocol.NetworkEthereum: f.node}}
	f.gen = NewGenerator(testConfig(freq), resolver, f.llm, f.ff, f.bt, f.prompts)
	return f
}

func TestTick_StoresEveryKind(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()

	for _, j := range f.gen.jobs() {
		f.gen.tick(ctx, j)
	}

	require.Equal(t, 1, f.ff.len())
	assert.Equal(t, "0xabcdef0123456789", f.ff.items[0].expected)
	assert.Equal(t, protocol.NetworkEthereum, f.ff.items[0].network)
	assert.Equal(t, 20, f.ff.items[0].threshold)

	require.Equal(t, 1, f.bt.len())
	assert.Equal(t, "42000", f.bt.items[0].expected)
	assert.Equal(t, 30, f.bt.items[0].threshold)

	var c protocol.Challenge
	require.NoError(t, sonic.UnmarshalString(f.bt.items[0].json, &c))
	assert.Equal(t, protocol.ModelKindBalanceTracking, c.ModelKind)
	assert.Equal(t, "0xaaaa", c.Address)
	assert.LessOrEqual(t, c.BlockHeight, int64(100-nodes.ConfirmationDepth))

	require.Equal(t, 1, f.prompts.len())
	assert.Equal(t, "what happened in 0xabcdef0123456789", f.prompts.prompts[0])
}

func TestTick_RetriesNodeErrors(t *testing.T) {
	old := retryInitialInterval
	retryInitialInterval = time.Millisecond
	defer func() { retryInitialInterval = old }()

	f := newFixture(time.Hour)
	f.node.failFirst = 2

	f.gen.tick(context.Background(), f.gen.jobs()[1])
	assert.Equal(t, 1, f.ff.len())
	assert.Equal(t, 3, f.node.calls)
}

func TestTick_StoresItemProducedAtCancel(t *testing.T) {
	f := newFixture(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	f.llm.onBuild = cancel

	f.gen.tick(ctx, f.gen.jobs()[0])
	assert.Equal(t, 1, f.prompts.len())
}

func TestStartStop(t *testing.T) {
	f := newFixture(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	f.gen.Start(ctx)
	require.Eventually(t, func() bool {
		return f.ff.len() >= 2 && f.bt.len() >= 2 && f.prompts.len() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		f.gen.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("generators did not stop after cancel")
	}

	settled := f.ff.len()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, f.ff.len())
}

func TestFundsFlowChallenge(t *testing.T) {
	raw, err := FundsFlowChallenge(&nodes.Transaction{TxID: "0x1234567890abcdef", BlockHeight: 7, InTotal: 2, OutTotal: 1.9})
	require.NoError(t, err)

	var c protocol.Challenge
	require.NoError(t, sonic.UnmarshalString(raw, &c))
	assert.Equal(t, protocol.ModelKindFundsFlow, c.ModelKind)
	assert.Equal(t, "abcdef", c.TxIDLast6Chars)
	assert.Equal(t, int64(7), c.BlockHeight)
	require.NotNil(t, c.InTotalAmount)
	assert.Equal(t, 2.0, *c.InTotalAmount)
	assert.NotContains(t, raw, "1234567890abcdef")
}

func TestPromptTemplatesHavePlaceholders(t *testing.T) {
	for _, network := range protocol.Networks {
		require.NotEmpty(t, promptTemplates[network], network)
		for _, tmpl := range promptTemplates[network] {
			assert.Contains(t, tmpl, "{block}")
		}
	}
}
