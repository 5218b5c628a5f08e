package jobs

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleListings() *Listings {
	published := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	return &Listings{Items: []Listing{
		{Title: "Go developer", Employer: "Acme", Location: "Oslo", URL: "https://example.test/1", Published: &published},
		{Title: "Nurse", Employer: "Sykehus", Location: "Bergen", URL: "https://example.test/2"},
		{Title: "Backend engineer", Employer: "Acme", Location: "Oslo", URL: "https://example.test/3", Deadline: "2026-11-01"},
	}}
}

func TestListingsExcludeKeepsOrder(t *testing.T) {
	listings := sampleListings()

	excluded := listings.Exclude(func(l Listing) bool { return l.Employer == "Sykehus" })

	assert.Equal(t, []string{"https://example.test/2"}, excluded)
	require.Equal(t, 2, listings.Len())
	assert.Equal(t, "Go developer", listings.Items[0].Title)
	assert.Equal(t, "Backend engineer", listings.Items[1].Title)
}

func TestListingsFindByURL(t *testing.T) {
	listings := sampleListings()

	found := listings.FindByURL("https://example.test/3")
	require.NotNil(t, found)
	assert.Equal(t, "Backend engineer", found.Title)
	assert.Nil(t, listings.FindByURL("https://example.test/404"))
}

func TestListingWithDescriptionCopies(t *testing.T) {
	original := Listing{Title: "Go developer"}
	described := original.WithDescription("Write Go.")

	assert.Empty(t, original.Description)
	assert.Equal(t, "Write Go.", described.Description)
}

func TestReportByEmployer(t *testing.T) {
	report := sampleListings().ReportByEmployer()

	require.Len(t, report["Acme"], 2)
	assert.Equal(t, "2026-10-01", report["Acme"][0]["published"])
	assert.Equal(t, "2026-11-01", report["Acme"][1]["deadline"])
	assert.Len(t, report["Sykehus"], 1)
}

func TestDumpToTmpFile(t *testing.T) {
	path, err := sampleListings().DumpToTmpFile()
	require.NoError(t, err)
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []Listing
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 3)
}

func TestNilListingsLen(t *testing.T) {
	var listings *Listings
	assert.Equal(t, 0, listings.Len())
	assert.Equal(t, 0, NewListings().Len())
}

func TestSortRankedIsStable(t *testing.T) {
	ranked := []RankedListing{
		{Listing: Listing{Title: "a"}, Score: 50},
		{Listing: Listing{Title: "b"}, Score: 90},
		{Listing: Listing{Title: "c"}, Score: 50},
		{Listing: Listing{Title: "d"}, Score: 90},
	}

	SortRanked(ranked)

	titles := make([]string, 0, len(ranked))
	for _, r := range ranked {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, titles)
	assert.True(t, IsSortedByScore(ranked))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-3))
	assert.Equal(t, 100, ClampScore(140))
	assert.Equal(t, 42, ClampScore(42))
}

func TestRankedListingJSONIsFlat(t *testing.T) {
	data, err := json.Marshal(RankedListing{Listing: Listing{Title: "Go"}, Score: 80, Summary: "Good fit."})
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "Go", flat["title"])
	assert.EqualValues(t, 80, flat["match_score"])
	assert.Equal(t, "Good fit.", flat["summary"])
}
