package search

import "sort"

// DefaultRRFK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const DefaultRRFK = 60

// MergeRRF fuses two ranked id lists via Reciprocal Rank Fusion.
// score(id) = sum of 1/(k + rank) over the lists containing id, rank 1-based.
// Ties fall back to the best rank in either list, then to the id itself.
// Output is deduplicated; duplicate ids inside one list keep their first rank.
func MergeRRF(a, b []string, k int) []string {
	if k <= 0 {
		k = DefaultRRFK
	}

	type fused struct {
		id       string
		score    float64
		bestRank int
	}

	merged := make(map[string]*fused, len(a)+len(b))
	add := func(list []string) {
		seen := make(map[string]struct{}, len(list))
		for i, id := range list {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			rank := i + 1
			f, ok := merged[id]
			if !ok {
				f = &fused{id: id, bestRank: rank}
				merged[id] = f
			}
			f.score += 1.0 / float64(k+rank)
			f.bestRank = min(f.bestRank, rank)
		}
	}
	add(a)
	add(b)

	out := make([]*fused, 0, len(merged))
	for _, f := range merged {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].bestRank != out[j].bestRank {
			return out[i].bestRank < out[j].bestRank
		}
		return out[i].id < out[j].id
	})

	ids := make([]string, len(out))
	for i, f := range out {
		ids[i] = f.id
	}
	return ids
}
