package clip

import (
	"sort"

	"github.com/kailas-cloud/footage/internal/domain/search/filter"
)

// Vocabulary lists the canonical values of every filter field in a corpus.
type Vocabulary map[filter.Field][]string

// DefaultVocabulary is used when no corpus is available.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		filter.FieldTimeOfDay: {"DAY", "NIGHT"},
		filter.FieldIntExt:    {"EXT", "INT"},
	}
}

// BuildVocabulary collects sorted distinct values across scenes.
// Actors come from both scene casts and clip casts.
func BuildVocabulary(scenes []Scene) Vocabulary {
	sets := map[filter.Field]map[string]struct{}{}
	add := func(f filter.Field, v string) {
		if v == "" {
			return
		}
		if sets[f] == nil {
			sets[f] = map[string]struct{}{}
		}
		sets[f][v] = struct{}{}
	}

	for _, s := range scenes {
		add(filter.FieldSceneID, s.ID)
		add(filter.FieldLocation, s.Description.Location)
		add(filter.FieldTimeOfDay, s.Description.TimeOfDay)
		add(filter.FieldIntExt, s.Description.IntExt)
		for _, a := range s.Description.Actors {
			add(filter.FieldActors, a)
		}
		for _, c := range s.Clips {
			for _, a := range c.Actors {
				add(filter.FieldActors, a)
			}
		}
	}

	v := Vocabulary{}
	for f, set := range sets {
		values := make([]string, 0, len(set))
		for s := range set {
			values = append(values, s)
		}
		sort.Strings(values)
		v[f] = values
	}
	return v
}

// Values returns at most limit values for f. limit <= 0 means all.
func (v Vocabulary) Values(f filter.Field, limit int) []string {
	values := v[f]
	if limit > 0 && len(values) > limit {
		return values[:limit]
	}
	return values
}
