package contracts

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"testing"
)

func TestCompositeScore_Ordering(t *testing.T) {
	tests := []struct {
		name string
		a, b CompositeScore
		want bool
	}{
		{"higher wins", Scored(0.5), Scored(0.1), true},
		{"lower loses", Scored(-0.5), Scored(0.1), false},
		{"scored beats disqualified", Scored(-50), Disqualified([]string{"price"}), true},
		{"disqualified never beats scored", Disqualified(nil), Scored(-20), false},
		{"disqualified ties", Disqualified(nil), Disqualified([]string{"x"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Better(tt.b); got != tt.want {
				t.Errorf("Better() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompositeScore_SortsDisqualifiedLast(t *testing.T) {
	scores := []CompositeScore{
		Disqualified([]string{"liquidity"}),
		Scored(-11),
		Scored(0.3),
		Disqualified(nil),
		Scored(-9.99),
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Better(scores[j]) })

	if v, _ := scores[0].Value(); v != 0.3 {
		t.Errorf("Expected 0.3 first, got %v", scores[0])
	}
	if v, _ := scores[2].Value(); v != -11 {
		t.Errorf("Expected -11 third, got %v", scores[2])
	}
	if !scores[3].IsDisqualified() || !scores[4].IsDisqualified() {
		t.Errorf("Expected disqualified scores last, got %v", scores)
	}
}

func TestCompositeScore_JSON(t *testing.T) {
	data, err := json.Marshal(Disqualified([]string{"price below floor"}))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != "-10" {
		t.Errorf("Expected sentinel -10, got %s", data)
	}

	var s CompositeScore
	if err := json.Unmarshal([]byte("-10.0"), &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !s.IsDisqualified() {
		t.Error("Expected sentinel to decode as disqualified")
	}

	if err := json.Unmarshal([]byte("0.42"), &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v, ok := s.Value(); !ok || v != 0.42 {
		t.Errorf("Expected 0.42, got %v (%v)", v, ok)
	}
}

func TestScoredCandidate_JSONKeepsReasons(t *testing.T) {
	tests := []struct {
		name string
		in   ScoredCandidate
		want []string
	}{
		{
			"reasons serialized next to score",
			ScoredCandidate{Ticker: "HALT", Composite: Disqualified([]string{"trading halted", "price below floor"})},
			[]string{"trading halted", "price below floor"},
		},
		{
			"falls back to risk reasons",
			ScoredCandidate{Ticker: "MA", Risk: RiskFlags{Reasons: []string{"pending M&A"}}, Composite: Disqualified(nil)},
			[]string{"pending M&A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}

			var out ScoredCandidate
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if !out.Composite.IsDisqualified() {
				t.Fatal("Expected disqualified after reload")
			}
			if !reflect.DeepEqual(out.Composite.Reasons(), tt.want) {
				t.Errorf("Expected reasons %v, got %v", tt.want, out.Composite.Reasons())
			}
			if out.Ticker != tt.in.Ticker {
				t.Errorf("Expected ticker %s, got %s", tt.in.Ticker, out.Ticker)
			}
		})
	}

	data, err := json.Marshal(ScoredCandidate{Ticker: "OK", Composite: Scored(0.4)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), "disqualification_reasons") {
		t.Errorf("Expected no reasons for a scored candidate, got %s", data)
	}
}

func TestCompositeScore_Float(t *testing.T) {
	if got := Disqualified(nil).Float(); got != DisqualifiedSentinel {
		t.Errorf("Expected sentinel, got %v", got)
	}
	if got := Scored(0.25).Float(); got != 0.25 {
		t.Errorf("Expected 0.25, got %v", got)
	}
}
