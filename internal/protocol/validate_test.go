package protocol

import (
	"encoding/json"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoveryValidate(t *testing.T) {
	assert.NoError(t, (&Discovery{Network: NetworkBitcoin}).Validate())
	assert.ErrorIs(t, (&Discovery{}).Validate(), ErrMalformedPayload)

	var nilDiscovery *Discovery
	assert.ErrorIs(t, nilDiscovery.Validate(), ErrMalformedPayload)
}

func TestChallengeActual(t *testing.T) {
	var c Challenge
	require.NoError(t, sonic.Unmarshal([]byte(`{"model_kind":"funds_flow","block_height":10,"output":{"tx_id":"abc123"}}`), &c))
	require.NoError(t, c.Validate())
	actual, err := c.Actual()
	require.NoError(t, err)
	assert.Equal(t, "abc123", actual)

	require.NoError(t, sonic.Unmarshal([]byte(`{"model_kind":"balance_tracking","block_height":10,"output":{"balance":1500000}}`), &c))
	actual, err = c.Actual()
	require.NoError(t, err)
	assert.Equal(t, "1500000", actual)
}

func TestChallengeActual_WeiBalance(t *testing.T) {
	api := sonic.Config{UseNumber: true}.Froze()
	var c Challenge
	require.NoError(t, api.Unmarshal([]byte(`{"model_kind":"balance_tracking","block_height":10,"output":{"balance":1234567890123456789}}`), &c))
	actual, err := c.Actual()
	require.NoError(t, err)
	assert.Equal(t, "1234567890123456789", actual)

	r := ChallengeMinerResponse{BalanceTrackingActual: actual, BalanceTrackingExpected: "1234567890123456789"}
	assert.Equal(t, 0, r.FailedChallenges())
}

func TestChallengeActual_FailsClosed(t *testing.T) {
	c := Challenge{ModelKind: ModelKindFundsFlow}
	_, err := c.Actual()
	assert.ErrorIs(t, err, ErrMalformedPayload)

	c.Output = map[string]any{"balance": 1.0}
	_, err = c.Actual()
	assert.ErrorIs(t, err, ErrMalformedPayload)

	c.Output = map[string]any{"tx_id": nil}
	_, err = c.Actual()
	assert.ErrorIs(t, err, ErrMalformedPayload)

	assert.ErrorIs(t, (&Challenge{ModelKind: "nope"}).Validate(), ErrMalformedPayload)
}

func TestCanonicalValue(t *testing.T) {
	cases := map[string]any{
		"42":                    float64(42),
		"0.5":                   0.5,
		"7":                     7,
		"8":                     int64(8),
		"12":                    json.Number("12"),
		"1234567890123456789":   json.Number("1234567890123456789"),
		"-98765432109876543210": json.Number("-98765432109876543210"),
		"1000":                  json.Number("1e3"),
		"0.25":                  json.Number("0.25"),
		"txhash":                "txhash",
	}
	for want, in := range cases {
		got, err := CanonicalValue(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := CanonicalValue([]int{1})
	assert.Error(t, err)
}

func TestFailedChallenges(t *testing.T) {
	r := ChallengeMinerResponse{
		FundsFlowActual: "a", FundsFlowExpected: "a",
		BalanceTrackingActual: "1", BalanceTrackingExpected: "1",
	}
	assert.Equal(t, 0, r.FailedChallenges())

	r.FundsFlowActual = "b"
	assert.Equal(t, 1, r.FailedChallenges())

	r.BalanceTrackingActual = "2"
	assert.Equal(t, 2, r.FailedChallenges())
}

func TestLlmOutputsValidate(t *testing.T) {
	assert.ErrorIs(t, (&LlmMessageOutputList{}).Validate(), ErrMalformedPayload)
	assert.ErrorIs(t, (&LlmMessageOutputList{Outputs: []LlmMessageOutput{{Result: 1}}}).Validate(), ErrMalformedPayload)
	assert.NoError(t, (&LlmMessageOutputList{Outputs: []LlmMessageOutput{{Query: "MATCH (n) RETURN n"}}}).Validate())
}

func TestLlmQueryRequestValidate(t *testing.T) {
	ok := LlmQueryRequest{Prompt: []LlmMessage{{Content: "hi"}}, Network: NetworkEthereum}
	assert.NoError(t, ok.Validate())

	assert.Error(t, (&LlmQueryRequest{Network: NetworkEthereum}).Validate())
	assert.Error(t, (&LlmQueryRequest{Prompt: ok.Prompt, Network: "dogecoin"}).Validate())
}

func TestResultString(t *testing.T) {
	s, err := ResultString("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", s)

	s, err = ResultString(map[string]any{"balance": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":3}`, s)
}
