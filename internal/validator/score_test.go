package validator

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chaininsights/validator/internal/protocol"
)

func outcome(ffPass, btPass bool, validation *bool) *protocol.ChallengeMinerResponse {
	o := &protocol.ChallengeMinerResponse{
		Network:                 protocol.NetworkBitcoin,
		FundsFlowActual:         "tx",
		FundsFlowExpected:       "tx",
		BalanceTrackingActual:   "1",
		BalanceTrackingExpected: "1",
		QueryValidationResult:   validation,
	}
	if !ffPass {
		o.FundsFlowActual = "other"
	}
	if !btPass {
		o.BalanceTrackingActual = "2"
	}
	return o
}

func ptr[T any](v T) *T { return &v }

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		outcome    *protocol.ChallengeMinerResponse
		multiplier float64
		want       float64
	}{
		{"absent", nil, 1, 0},
		{"both failed", outcome(false, false, ptr(true)), 1, 0},
		{"funds flow failed", outcome(false, true, ptr(true)), 1, 0.15},
		{"balance failed", outcome(true, false, nil), 1, 0.15},
		{"passed, no validation", outcome(true, true, nil), 1, 0.3},
		{"passed, invalid query", outcome(true, true, ptr(false)), 1, 0.3},
		{"passed, valid, no receipts share", outcome(true, true, ptr(true)), 0, 0.45},
		{"passed, valid, partial multiplier", outcome(true, true, ptr(true)), 0.8, 0.89},
		{"passed, valid, full multiplier", outcome(true, true, ptr(true)), 1, 1},
		{"multiplier clamps", outcome(true, true, ptr(true)), 7.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.outcome, tt.multiplier), 1e-9)
		})
	}
}

func TestScore_Bounded(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 1000; i++ {
		var validation *bool
		switch r.IntN(3) {
		case 1:
			validation = ptr(true)
		case 2:
			validation = ptr(false)
		}
		o := outcome(r.IntN(2) == 0, r.IntN(2) == 0, validation)
		s := Score(o, r.Float64()*4-1)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}
