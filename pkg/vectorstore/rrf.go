package vectorstore

import "sort"

// DefaultRRFConstant is the k = 60 external default spec §4.7/§4.8 calls
// for when no store-specific fusion constant is configured.
const DefaultRRFConstant = 60

// FusedResult is one document as ranked by reciprocal rank fusion.
type FusedResult struct {
	ID    string
	Score float64
}

// FuseRRF combines two ranked id lists via Reciprocal Rank Fusion (spec
// §4.8): rrf(d) = Σ 1/(k+rank_i(d)) over the lists d appears in. Ties break
// by (a) higher dense rank first, (b) lexicographic id.
func FuseRRF(dense, sparse []string, k int) []FusedResult {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	denseRank := make(map[string]int, len(dense))
	for i, id := range dense {
		denseRank[id] = i + 1
	}
	sparseRank := make(map[string]int, len(sparse))
	for i, id := range sparse {
		sparseRank[id] = i + 1
	}

	order := make([]string, 0, len(dense)+len(sparse))
	seen := make(map[string]struct{}, len(dense)+len(sparse))
	for _, id := range dense {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			order = append(order, id)
		}
	}
	for _, id := range sparse {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			order = append(order, id)
		}
	}

	results := make([]FusedResult, len(order))
	for i, id := range order {
		var score float64
		if r, ok := denseRank[id]; ok {
			score += 1.0 / float64(k+r)
		}
		if r, ok := sparseRank[id]; ok {
			score += 1.0 / float64(k+r)
		}
		results[i] = FusedResult{ID: id, Score: score}
	}

	const absent = int(^uint(0) >> 1)
	rankOf := func(id string) int {
		if r, ok := denseRank[id]; ok {
			return r
		}
		return absent
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ri, rj := rankOf(results[i].ID), rankOf(results[j].ID)
		if ri != rj {
			return ri < rj
		}
		return results[i].ID < results[j].ID
	})

	return results
}
