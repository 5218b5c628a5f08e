package ranking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/spigell/finn-ranker/internal/jobs"
	"github.com/spigell/finn-ranker/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubGenerator struct {
	mu      sync.Mutex
	respond func(prompt string) (string, error)
	prompts []string
	systems []string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.systems = append(s.systems, system)
	s.mu.Unlock()
	return s.respond(prompt)
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

var listingLine = regexp.MustCompile(`\[(\d+)\] job-(\d+) –`)

// scoreByTitle answers with the score encoded in each listing title, "job-<score>".
func scoreByTitle(prompt string) (string, error) {
	var items []string
	for _, m := range listingLine.FindAllStringSubmatch(prompt, -1) {
		items = append(items, fmt.Sprintf(`{"job_index": %s, "match_score": %s, "summary": "score %s"}`, m[1], m[2], m[2]))
	}
	return "```json\n[" + strings.Join(items, ",\n") + "]\n```", nil
}

func listingsWithScores(scores ...int) []jobs.Listing {
	listings := make([]jobs.Listing, 0, len(scores))
	for i, s := range scores {
		listings = append(listings, jobs.Listing{
			ID:       fmt.Sprint(i),
			Title:    fmt.Sprintf("job-%d", s),
			Employer: "Acme",
			Location: "Oslo",
			URL:      fmt.Sprintf("https://www.finn.no/job/ad/%d", i),
		})
	}
	return listings
}

var withCV = profile.Profile{CV: "Jane Doe, Go developer", CVFilename: "cv.txt"}

func TestRankSortsDescendingWithStableTies(t *testing.T) {
	stub := &stubGenerator{respond: scoreByTitle}
	ranker := New(stub, Config{}, zap.NewNop())

	listings := listingsWithScores(40, 90, 70, 70, 10)
	ranked, err := ranker.Rank(context.Background(), withCV, listings)
	require.NoError(t, err)

	require.Len(t, ranked, 5)
	assert.True(t, jobs.IsSortedByScore(ranked))

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.ID)
		assert.NotEmpty(t, r.Summary)
	}
	assert.Equal(t, []string{"1", "2", "3", "0", "4"}, ids)

	require.Len(t, stub.systems, 1)
	assert.Equal(t, systemPrompt, stub.systems[0])
}

func TestRankClampsAndRoundsScores(t *testing.T) {
	stub := &stubGenerator{respond: func(string) (string, error) {
		return `Here you go: [
			{"job_index": 0, "match_score": 120, "summary": "great"},
			{"job_index": "1", "match_score": "-5", "summary": "poor"},
			{"job_index": 2, "match_score": "66.6%", "summary": "fine"}
		]`, nil
	}}
	ranker := New(stub, Config{}, zap.NewNop())

	ranked, err := ranker.Rank(context.Background(), withCV, listingsWithScores(1, 2, 3))
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, 100, ranked[0].Score)
	assert.Equal(t, 67, ranked[1].Score)
	assert.Equal(t, 0, ranked[2].Score)
	for _, r := range ranked {
		assert.GreaterOrEqual(t, r.Score, jobs.MinScore)
		assert.LessOrEqual(t, r.Score, jobs.MaxScore)
	}
}

func TestRankClampsOutOfRangeScores(t *testing.T) {
	stub := &stubGenerator{respond: func(string) (string, error) {
		return `[
			{"job_index": 0, "match_score": 1e20, "summary": "huge"},
			{"job_index": 1, "match_score": "Infinity", "summary": "infinite"},
			{"job_index": 2, "match_score": 150, "summary": "over"},
			{"job_index": 3, "match_score": -1e20, "summary": "negative"}
		]`, nil
	}}
	ranker := New(stub, Config{}, zap.NewNop())

	listings := listingsWithScores(1, 2, 3, 4)
	ranked, err := ranker.Rank(context.Background(), withCV, listings)
	require.NoError(t, err)
	require.Len(t, ranked, 3, "an infinite score is not a score")

	assert.Equal(t, listings[0].URL, ranked[0].URL)
	assert.Equal(t, 100, ranked[0].Score)
	assert.Equal(t, listings[2].URL, ranked[1].URL)
	assert.Equal(t, 100, ranked[1].Score)
	assert.Equal(t, listings[3].URL, ranked[2].URL)
	assert.Equal(t, 0, ranked[2].Score)
}

func TestRankValidation(t *testing.T) {
	stub := &stubGenerator{respond: scoreByTitle}
	ranker := New(stub, Config{MaxListings: 2}, zap.NewNop())

	_, err := ranker.Rank(context.Background(), profile.Profile{}, listingsWithScores(1))
	assert.ErrorIs(t, err, ErrNoCV)

	_, err = ranker.Rank(context.Background(), withCV, nil)
	assert.ErrorIs(t, err, ErrNoListings)

	_, err = ranker.Rank(context.Background(), withCV, listingsWithScores(1, 2, 3))
	assert.ErrorIs(t, err, ErrTooManyListings)

	assert.Empty(t, stub.prompts, "validation errors must not reach the model")
}

func TestRankBatchesMapBackToListings(t *testing.T) {
	stub := &stubGenerator{respond: scoreByTitle}
	ranker := New(stub, Config{BatchSize: 2, Concurrency: 2}, zap.NewNop())

	listings := listingsWithScores(11, 55, 33, 99, 77)
	ranked, err := ranker.Rank(context.Background(), withCV, listings)
	require.NoError(t, err)

	assert.Len(t, stub.prompts, 3)
	require.Len(t, ranked, 5)

	for _, r := range ranked {
		assert.Equal(t, fmt.Sprintf("job-%d", r.Score), r.Title)
	}
	assert.Equal(t, 99, ranked[0].Score)
	assert.Equal(t, 11, ranked[4].Score)
}

func TestRankFailsWhenAnyBatchFails(t *testing.T) {
	boom := errors.New("upstream exploded")
	stub := &stubGenerator{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "job-99") {
			return "", boom
		}
		return scoreByTitle(prompt)
	}}
	ranker := New(stub, Config{BatchSize: 2}, zap.NewNop())

	ranked, err := ranker.Rank(context.Background(), withCV, listingsWithScores(10, 20, 99, 30))
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, ranked)
}

func TestRankFailsOnUnparseableAnswer(t *testing.T) {
	stub := &stubGenerator{respond: func(string) (string, error) {
		return "I am sorry, I cannot help with that.", nil
	}}
	ranker := New(stub, Config{}, zap.NewNop())

	_, err := ranker.Rank(context.Background(), withCV, listingsWithScores(10))
	require.ErrorIs(t, err, ErrUnparseable)
	assert.Contains(t, err.Error(), "I am sorry")
}

func TestRankDropsAndLogsOmittedListings(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	stub := &stubGenerator{respond: func(string) (string, error) {
		return `[{"job_index": 1, "match_score": 80, "summary": "good"},
			{"job_index": 1, "match_score": 10, "summary": "duplicate"},
			{"job_index": 7, "match_score": 50, "summary": "unknown"}]`, nil
	}}
	ranker := New(stub, Config{}, zap.New(core))

	ranked, err := ranker.Rank(context.Background(), withCV, listingsWithScores(1, 2))
	require.NoError(t, err)

	require.Len(t, ranked, 1)
	assert.Equal(t, "1", ranked[0].ID)
	assert.Equal(t, 80, ranked[0].Score)

	entries := logs.FilterMessage("model left listings unscored").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["omitted"])
}
