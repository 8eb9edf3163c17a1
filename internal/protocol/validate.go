package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/bytedance/sonic"
)

// IsSupportedNetwork reports whether network is monitored by this validator.
func IsSupportedNetwork(network string) bool {
	for _, n := range Networks {
		if n == network {
			return true
		}
	}
	return false
}

func (d *Discovery) Validate() error {
	if d == nil || d.Network == "" {
		return fmt.Errorf("%w: discovery without network", ErrMalformedPayload)
	}
	return nil
}

func (c *Challenge) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil challenge", ErrMalformedPayload)
	}
	switch c.ModelKind {
	case ModelKindFundsFlow, ModelKindBalanceTracking:
	default:
		return fmt.Errorf("%w: unknown challenge kind %q", ErrMalformedPayload, c.ModelKind)
	}
	return nil
}

// OutputKey is the key of the answer inside Output for this challenge kind.
func (c *Challenge) OutputKey() string {
	if c.ModelKind == ModelKindBalanceTracking {
		return "balance"
	}
	return "tx_id"
}

// Actual extracts the miner's answer from Output as a canonical string.
func (c *Challenge) Actual() (string, error) {
	if c.Output == nil {
		return "", fmt.Errorf("%w: challenge without output", ErrMalformedPayload)
	}
	v, ok := c.Output[c.OutputKey()]
	if !ok {
		return "", fmt.Errorf("%w: output missing %q", ErrMalformedPayload, c.OutputKey())
	}
	return CanonicalValue(v)
}

// CanonicalValue renders scalar JSON values so that equal numbers compare equal
// regardless of how they were encoded.
func CanonicalValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10), nil
		}
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case json.Number:
		return canonicalNumber(t)
	case nil:
		return "", fmt.Errorf("%w: null value", ErrMalformedPayload)
	}
	return "", fmt.Errorf("%w: unsupported value type %T", ErrMalformedPayload, v)
}

// canonicalNumber renders a JSON number literal from its digits so integers
// beyond float64 precision, such as wei balances, survive exactly.
func canonicalNumber(n json.Number) (string, error) {
	if i, ok := new(big.Int).SetString(n.String(), 10); ok {
		return i.String(), nil
	}
	r, ok := new(big.Rat).SetString(n.String())
	if !ok {
		return "", fmt.Errorf("%w: invalid number %q", ErrMalformedPayload, n.String())
	}
	if r.IsInt() {
		return r.Num().String(), nil
	}
	f, _ := r.Float64()
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// Validate requires at least one output carrying a query.
func (l *LlmMessageOutputList) Validate() error {
	if l == nil || len(l.Outputs) == 0 {
		return fmt.Errorf("%w: empty llm query outputs", ErrMalformedPayload)
	}
	if l.Outputs[0].Query == "" {
		return fmt.Errorf("%w: llm output without query", ErrMalformedPayload)
	}
	return nil
}

func (r *LlmQueryRequest) Validate() error {
	if len(r.Prompt) == 0 {
		return fmt.Errorf("prompt must contain at least one message")
	}
	if !IsSupportedNetwork(r.Network) {
		return fmt.Errorf("unsupported network %q", r.Network)
	}
	return nil
}

// FailedChallenges counts challenge kinds whose actual value differs from
// the expected one.
func (r *ChallengeMinerResponse) FailedChallenges() int {
	failed := 0
	if r.FundsFlowActual != r.FundsFlowExpected {
		failed++
	}
	if r.BalanceTrackingActual != r.BalanceTrackingExpected {
		failed++
	}
	return failed
}

// ResultString coerces a structured query result to its JSON text.
func ResultString(result any) (string, error) {
	if s, ok := result.(string); ok {
		return s, nil
	}
	b, err := sonic.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(b), nil
}
