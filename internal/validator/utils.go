package validator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/protocol"
	"github.com/chaininsights/validator/internal/storage"
)

// nextRound increments the persisted round counter, falling back to a
// process-local counter when Redis is absent or failing.
func (v *Validator) nextRound(ctx context.Context) int64 {
	local := v.round.Add(1)
	if v.Redis == nil {
		return local
	}
	n, err := v.Redis.Incr(ctx, roundCounterKey)
	if err != nil {
		log.Warn().Err(err).Msg("failed to increment round counter in redis, using local counter")
		return local
	}
	return n
}

func (v *Validator) publishRound(ctx context.Context, summary RoundSummary) {
	if v.Redis == nil {
		return
	}
	raw, err := sonic.MarshalString(summary)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal round summary")
		return
	}
	if err := v.Redis.Set(ctx, lastRoundKey, raw, 0); err != nil {
		log.Warn().Err(err).Msg("failed to publish round summary")
	}
}

// LastRound returns the summary of the most recent round, if published.
func (v *Validator) LastRound(ctx context.Context) (*RoundSummary, error) {
	if v.Redis == nil {
		return nil, nil
	}
	raw, err := v.Redis.Get(ctx, lastRoundKey)
	if err != nil || raw == "" {
		return nil, err
	}
	var s RoundSummary
	if err := sonic.UnmarshalString(raw, &s); err != nil {
		return nil, fmt.Errorf("decode round summary: %w", err)
	}
	return &s, nil
}

// PromptHash is the hex sha256 of the JSON encoding of prompt.
func PromptHash(prompt []protocol.LlmMessage) (string, error) {
	raw, err := sonic.Marshal(prompt)
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// sampleMiners picks n miners without replacement, or all of them when there
// are no more than n.
func sampleMiners(miners []storage.MinerDiscovery, n int) []storage.MinerDiscovery {
	if len(miners) <= n {
		return miners
	}
	picked := make([]storage.MinerDiscovery, len(miners))
	copy(picked, miners)
	rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked[:n]
}

func uidList(peers []Peer) string {
	b := make([]byte, 0, len(peers)*4)
	for i, p := range peers {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendInt(b, int64(p.UID), 10)
	}
	return string(b)
}

func since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
