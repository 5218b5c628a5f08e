package jobs

import (
	"encoding/json"
	"os"
	"time"
)

// Listing is a single job posting as presented by the search site.
type Listing struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Employer    string     `json:"employer"`
	Location    string     `json:"location"`
	URL         string     `json:"url"`
	Description string     `json:"description,omitempty"`
	Deadline    string     `json:"deadline,omitempty"`
	Published   *time.Time `json:"published,omitempty"`
}

// WithDescription returns a copy of the listing carrying the given description.
func (l Listing) WithDescription(description string) Listing {
	l.Description = description
	return l
}

// Listings keeps listings in the order the site returned them.
type Listings struct {
	Items []Listing
}

// NewListings returns an empty, non-nil collection.
func NewListings() *Listings {
	return &Listings{Items: make([]Listing, 0)}
}

func (l *Listings) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

func (l *Listings) FindByURL(url string) *Listing {
	for i := range l.Items {
		if l.Items[i].URL == url {
			return &l.Items[i]
		}
	}
	return nil
}

// Exclude drops every listing matched by fn, keeping the order of the rest, and
// returns the URLs of the dropped listings.
func (l *Listings) Exclude(fn func(Listing) bool) []string {
	var excluded []string
	kept := l.Items[:0]
	for _, listing := range l.Items {
		if fn(listing) {
			excluded = append(excluded, listing.URL)
			continue
		}
		kept = append(kept, listing)
	}
	l.Items = kept
	return excluded
}

// ReportByEmployer groups a short view of each listing by employer name.
func (l *Listings) ReportByEmployer() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, listing := range l.Items {
		key := listing.Employer
		if key == "" {
			key = "(unknown employer)"
		}
		entry := map[string]string{
			"title":    listing.Title,
			"url":      listing.URL,
			"location": listing.Location,
		}
		if listing.Deadline != "" {
			entry["deadline"] = listing.Deadline
		}
		if listing.Published != nil {
			entry["published"] = listing.Published.Format(time.DateOnly)
		}
		report[key] = append(report[key], entry)
	}
	return report
}

// DumpToTmpFile writes the listings as indented JSON to a new temp file and returns its path.
func (l *Listings) DumpToTmpFile() (string, error) {
	return dumpToTmpFile("listings_*.json", l.Items)
}

func dumpToTmpFile(pattern string, v any) (string, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}
