package ranking

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  []score
		isErr bool
	}{
		{
			name: "plain",
			raw:  `[{"job_index": 0, "match_score": 80, "summary": "Good fit"}]`,
			want: []score{{Index: 0, Score: 80, Summary: "Good fit"}},
		},
		{
			name: "fenced with prose",
			raw:  "Sure!\n```json\n[{\"job_index\": 1, \"match_score\": \"75\", \"summary\": \" ok \"}]\n```\nAnything else?",
			want: []score{{Index: 1, Score: 75, Summary: "ok"}},
		},
		{
			name: "truncated after comma",
			raw:  `[{"job_index": 0, "match_score": 80, "summary": "a"}, {"job_index": 1, "match_score": 60, "summary": "b"}, {"job_index": 2, "match_sc`,
			want: []score{{Index: 0, Score: 80, Summary: "a"}, {Index: 1, Score: 60, Summary: "b"}},
		},
		{
			name: "truncated after object",
			raw:  `[{"job_index": 0, "match_score": 80, "summary": "a"}`,
			want: []score{{Index: 0, Score: 80, Summary: "a"}},
		},
		{
			name: "bracket inside summary",
			raw:  `[{"job_index": 0, "match_score": 50, "summary": "lacks [Go]"}, {"job_index": 1, "match_sc`,
			want: []score{{Index: 0, Score: 50, Summary: "lacks [Go]"}},
		},
		{
			name: "unusable items skipped",
			raw:  `[{"job_index": "x", "match_score": 10}, {"job_index": 1.5, "match_score": 10}, {"job_index": 2}, "text", {"job_index": 3, "match_score": 20, "summary": 42}]`,
			want: []score{{Index: 3, Score: 20, Summary: "42"}},
		},
		{
			name: "empty array",
			raw:  `[]`,
			want: []score{},
		},
		{name: "no array", raw: "no json here", isErr: true},
		{name: "opening only", raw: "[", isErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResponse(tt.raw)
			if tt.isErr {
				if !errors.Is(err, ErrUnparseable) {
					t.Fatalf("expected ErrUnparseable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d scores, got %+v", len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("score %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestParseResponsePreviewIsBounded(t *testing.T) {
	_, err := parseResponse(strings.Repeat("nope ", 200))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > previewLength+100 {
		t.Fatalf("error message too long: %d", len(err.Error()))
	}
}

func TestCoerceFloatRejectsInfinity(t *testing.T) {
	for _, in := range []any{"Infinity", "-Inf", "+inf", "abc", nil} {
		if got := coerceFloat(in); !math.IsNaN(got) {
			t.Fatalf("coerceFloat(%v) = %v, want NaN", in, got)
		}
	}
	if got := coerceFloat("1e20"); got != 1e20 {
		t.Fatalf("large finite values must be kept, got %v", got)
	}
}
