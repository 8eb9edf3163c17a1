package chainutils

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// WeightBudget is the total weight distributed per vote.
const WeightBudget = 1000

// CutToMaxAllowedWeights keeps the maxAllowed highest scores. Ties are broken
// by ascending uid so the result is deterministic.
func CutToMaxAllowedWeights(scores map[int]float64, maxAllowed int) map[int]float64 {
	uids := make([]int, 0, len(scores))
	for uid := range scores {
		uids = append(uids, uid)
	}
	sort.SliceStable(uids, func(i, j int) bool {
		if scores[uids[i]] != scores[uids[j]] {
			return scores[uids[i]] > scores[uids[j]]
		}
		return uids[i] < uids[j]
	})

	if maxAllowed < 0 {
		maxAllowed = 0
	}
	if len(uids) > maxAllowed {
		uids = uids[:maxAllowed]
	}

	out := make(map[int]float64, len(uids))
	for _, uid := range uids {
		out[uid] = scores[uid]
	}
	return out
}

// ConvertScoresToWeights scales scores to integer weights out of WeightBudget,
// truncating each share. A zero sum yields zero weights.
func ConvertScoresToWeights(scores map[int]float64) map[int]int {
	uids := make([]int, 0, len(scores))
	vals := make([]float64, 0, len(scores))
	for uid, s := range scores {
		uids = append(uids, uid)
		vals = append(vals, s)
	}

	total := floats.Sum(vals)
	out := make(map[int]int, len(uids))
	for i, uid := range uids {
		if total == 0 {
			out[uid] = 0
			continue
		}
		out[uid] = int(math.Floor(vals[i] * WeightBudget / total))
	}
	return out
}

// SortedUidsAndWeights flattens a weight map into parallel slices ordered by uid.
func SortedUidsAndWeights(weights map[int]int) ([]int, []int) {
	uids := make([]int, 0, len(weights))
	for uid := range weights {
		uids = append(uids, uid)
	}
	sort.Ints(uids)

	vals := make([]int, len(uids))
	for i, uid := range uids {
		vals[i] = weights[uid]
	}
	return uids, vals
}
