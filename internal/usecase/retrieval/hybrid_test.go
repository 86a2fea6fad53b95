package retrieval

import (
	"math"
	"testing"

	domret "github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

const eps = 1e-9

func mustChunk(t *testing.T, id, text string) domret.Chunk {
	t.Helper()
	c, err := domret.NewChunk(id, text, domret.Metadata{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		name       string
		query, doc string
		want       float64
	}{
		{"full_overlap", "настроить ssl", "как настроить ssl сертификат", 1},
		{"partial", "настроить ssl nginx", "настроить сертификат", 1.0 / 3.0},
		{"no_overlap", "ssl", "база данных", 0},
		{"empty_query", "", "любой текст", 0},
		{"whitespace_query", "   ", "любой текст", 0},
		{"empty_doc", "ssl", "", 0},
		{"case_insensitive", "SSL Nginx", "ssl nginx", 1},
		{"duplicates_counted_once", "ssl ssl ssl", "ssl", 1},
		{"asymmetric_long_doc", "ssl", "ssl " + "слово слово слово слово", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := keywordScore(tc.query, tc.doc)
			if math.Abs(got-tc.want) > eps {
				t.Errorf("keywordScore = %f, want %f", got, tc.want)
			}
		})
	}
}

// Ten-word query with documents covering 2, 5, and 1 of the words gives
// keyword scores 0.2/0.5/0.1; distances 0.1/0.4/0.7 give vector scores
// 0.9/0.6/0.3. With weight 0.7 the combined scores are 0.69/0.57/0.24 and
// only the first two survive a 0.5 threshold.
func TestFuseHybrid_WeightedCombination(t *testing.T) {
	query := "w1 w2 w3 w4 w5 w6 w7 w8 w9 w10"
	candidates := []domret.Candidate{
		domret.NewCandidate(mustChunk(t, "a", "w1 w2 x y"), 0.1),
		domret.NewCandidate(mustChunk(t, "b", "w1 w2 w3 w4 w5 x"), 0.4),
		domret.NewCandidate(mustChunk(t, "c", "w1 x y z"), 0.7),
	}

	results := fuseHybrid(candidates, query, 0.7)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	wantCombined := []float64{0.69, 0.57, 0.24}
	wantIDs := []string{"a", "b", "c"}
	for i, r := range results {
		if r.ChunkID() != wantIDs[i] {
			t.Errorf("result[%d] id = %q, want %q", i, r.ChunkID(), wantIDs[i])
		}
		if math.Abs(r.CombinedScore()-wantCombined[i]) > 1e-6 {
			t.Errorf("result[%d] combined = %f, want %f", i, r.CombinedScore(), wantCombined[i])
		}
	}

	kept := domret.FilterByThreshold(results, 0.5)
	if len(kept) != 2 {
		t.Fatalf("expected 2 results above threshold, got %d", len(kept))
	}
	if kept[0].ChunkID() != "a" || kept[1].ChunkID() != "b" {
		t.Errorf("unexpected order after filter: %s, %s", kept[0].ChunkID(), kept[1].ChunkID())
	}
}

func TestFuseHybrid_TieBreaksByIndexRank(t *testing.T) {
	// Same distance and same text: identical combined scores. The candidate
	// that the index ranked first must stay first.
	candidates := []domret.Candidate{
		domret.NewCandidate(mustChunk(t, "first", "одинаковый текст"), 0.3),
		domret.NewCandidate(mustChunk(t, "second", "одинаковый текст"), 0.3),
		domret.NewCandidate(mustChunk(t, "third", "одинаковый текст"), 0.3),
	}

	for range [5]int{} {
		results := fuseHybrid(candidates, "запрос", 0.7)
		if results[0].ChunkID() != "first" || results[1].ChunkID() != "second" || results[2].ChunkID() != "third" {
			t.Fatalf("tie-break broke index order: %s, %s, %s",
				results[0].ChunkID(), results[1].ChunkID(), results[2].ChunkID())
		}
	}
}

func TestFuseHybrid_NegativeDistanceClamped(t *testing.T) {
	// Distance above 1 produces a negative raw similarity; it must clamp to 0.
	candidates := []domret.Candidate{
		domret.NewCandidate(mustChunk(t, "far", "нет совпадений"), 1.8),
	}

	results := fuseHybrid(candidates, "запрос", 1.0)
	if results[0].VectorScore() != 0 {
		t.Errorf("vector score = %f, want 0", results[0].VectorScore())
	}
	if results[0].CombinedScore() != 0 {
		t.Errorf("combined score = %f, want 0", results[0].CombinedScore())
	}
}

func TestFuseHybrid_WeightOneIsVectorOnly(t *testing.T) {
	candidates := []domret.Candidate{
		domret.NewCandidate(mustChunk(t, "a", "нет общих слов"), 0.4),
	}

	results := fuseHybrid(candidates, "запрос про ssl", 1.0)
	if math.Abs(results[0].CombinedScore()-0.6) > eps {
		t.Errorf("combined = %f, want 0.6 (pure vector)", results[0].CombinedScore())
	}
}

func TestFilterByThreshold_Idempotent(t *testing.T) {
	results := []domret.Result{
		domret.NewResult("a", "", domret.Metadata{}, 0.9, 0.9, 0.9),
		domret.NewResult("b", "", domret.Metadata{}, 0.3, 0.3, 0.3),
	}

	once := domret.FilterByThreshold(results, 0.5)
	twice := domret.FilterByThreshold(once, 0.5)
	if len(once) != 1 || len(twice) != 1 {
		t.Fatalf("expected 1 result after each pass, got %d then %d", len(once), len(twice))
	}
	if once[0].ChunkID() != twice[0].ChunkID() {
		t.Error("second pass changed the result")
	}
}
