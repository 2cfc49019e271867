package compoundindex

import (
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
)

// buildBleveQuery translates a Request's must predicates and text-should
// clauses into a bleve query tree. knn should-clauses are handled
// separately by Search against internal/vectorindex; bleve never sees
// them. Returns the set of fields to request highlights for.
func buildBleveQuery(req Request) (bleve.Query, []string) {
	must := make([]bleve.Query, 0, len(req.Must)+1)
	must = append(must, bleve.NewTermQuery(req.TenantID).SetField("tenant_id"))

	for _, p := range req.Must {
		switch p.Kind {
		case PredicateEquals:
			must = append(must, bleve.NewTermQuery(p.Value).SetField(p.Path))
		case PredicatePhrase:
			must = append(must, bleve.NewMatchPhraseQuery(p.Value).SetField(p.Path))
		case PredicateRange:
			gte, lte := p.GTE, p.LTE
			must = append(must, bleve.NewNumericRangeQuery(&gte, &lte).SetField(p.Path))
		case PredicateText:
			must = append(must, disjunctionOverPaths(p.Query, p.Paths, 0))
		}
	}

	var highlightFields []string
	should := make([]bleve.Query, 0, len(req.Should))
	for _, c := range req.Should {
		if c.Kind != ClauseText {
			continue
		}
		should = append(should, disjunctionOverPaths(c.Query, c.Paths, c.Boost))
		highlightFields = append(highlightFields, c.Paths...)
	}

	conj := bleve.NewConjunctionQuery(must...)
	if len(should) == 0 {
		return conj, highlightFields
	}

	disj := bleve.NewDisjunctionQuery(should...)
	if req.MinShouldMatch > 0 {
		disj.SetMin(float64(req.MinShouldMatch))
	}
	return bleve.NewConjunctionQuery(conj, disj), highlightFields
}

func disjunctionOverPaths(query string, paths []string, boost float64) bleve.Query {
	if len(paths) == 0 {
		mq := bleve.NewMatchQuery(query)
		if boost > 0 {
			mq.SetBoost(boost)
		}
		return mq
	}
	qs := make([]bleve.Query, len(paths))
	for i, path := range paths {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(path)
		if boost > 0 {
			mq.SetBoost(boost)
		}
		qs[i] = mq
	}
	return bleve.NewDisjunctionQuery(qs...)
}

// extractLexical flattens a bleve result into a rank-ordered chunk ID
// list plus per-chunk field and highlight maps.
func extractLexical(result *bleve.SearchResult) ([]string, map[string]map[string]interface{}, map[string][]string) {
	fields := map[string]map[string]interface{}{}
	highlights := map[string][]string{}
	if result == nil {
		return nil, fields, highlights
	}

	ranked := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ranked = append(ranked, hit.ID)
		fields[hit.ID] = hit.Fields
		for _, fragments := range hit.Fragments {
			highlights[hit.ID] = append(highlights[hit.ID], fragments...)
		}
	}
	return ranked, fields, highlights
}

type fusedHit struct {
	id    string
	score float64
}

// reciprocalRankFusion merges several independently-ranked ID lists into
// one list scored by sum((k + 1) / (k + rank + 1)) across every list the
// ID appears in, descending. The (k+1) numerator rescales the classic
// 1/(k+rank) RRF term so a rank-0 hit in a single list contributes
// exactly 1.0 — config.SearchConfig.ScoreCeiling is defined against that
// scale, not the unscaled sum.
func reciprocalRankFusion(rankedLists [][]string, k int) []fusedHit {
	scores := map[string]float64{}
	order := make([]string, 0)
	numerator := float64(k + 1)

	for _, list := range rankedLists {
		for rank, id := range list {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += numerator / float64(k+rank+1)
		}
	}

	out := make([]fusedHit, 0, len(order))
	for _, id := range order {
		out = append(out, fusedHit{id: id, score: scores[id]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func stringField(fields map[string]interface{}, key string) string {
	if fields == nil {
		return ""
	}
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// stringFields flattens a bleve stored-field map into strings for the
// search executor to read back: page_number and row_index are stored as
// numbers by bleve, everything else the executor cares about is a string.
func stringFields(fields map[string]interface{}) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = fmt.Sprintf("%d", int(val))
		case []interface{}:
			joined := ""
			for i, item := range val {
				var s string
				switch v := item.(type) {
				case string:
					s = v
				case float64:
					s = fmt.Sprintf("%d", int(v))
				default:
					continue
				}
				if i > 0 {
					joined += " "
				}
				joined += s
			}
			out[k] = joined
		}
	}
	return out
}
