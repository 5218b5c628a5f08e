package finn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// fakeSite serves search pages the way the job site embeds its state.
type fakeSite struct {
	t *testing.T

	mu       sync.Mutex
	requests []string

	filters []interface{}
	pages   [][]interface{}
	// failPage makes that result page answer with 500.
	failPage int
	ads      map[string]string
}

func (s *fakeSite) start() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(searchPath, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RawQuery)
		s.mu.Unlock()

		page := 1
		if raw := r.URL.Query().Get(pageParam); raw != "" {
			page, _ = strconv.Atoi(raw)
		}
		if page == s.failPage {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}

		var docs []interface{}
		if page-1 < len(s.pages) {
			docs = s.pages[page-1]
		}
		if docs == nil {
			docs = []interface{}{}
		}

		last := len(s.pages)
		if last == 0 {
			last = 1
		}

		state := map[string]interface{}{
			"filters": s.filters,
			"docs":    docs,
			"metadata": map[string]interface{}{
				"paging": map[string]interface{}{"current": page, "last": last},
			},
		}
		fmt.Fprint(w, statePage(s.t, state))
	})
	mux.HandleFunc(adPath, func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len(adPath):]
		body, ok := s.ads[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})

	srv := httptest.NewServer(mux)
	s.t.Cleanup(srv.Close)
	return srv
}

func (s *fakeSite) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func statePage(t *testing.T, data map[string]interface{}) string {
	t.Helper()

	payload, err := json.Marshal(map[string]interface{}{
		"queries": []interface{}{
			map[string]interface{}{"state": map[string]interface{}{"data": data}},
		},
	})
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}

	return `<html><head><script>window.dataLayer = [];</script></head><body>` +
		`<script type="application/json">` + base64.StdEncoding.EncodeToString(payload) + `</script>` +
		`</body></html>`
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	browser := NewHTTPBrowser(zap.NewNop())
	browser.HTTPClient = srv.Client()

	client := New(zap.NewNop(), browser)
	client.BaseURL = srv.URL
	client.HTTPClient = srv.Client()
	return client
}

func jobDoc(id, title, company string) map[string]interface{} {
	return map[string]interface{}{
		"id":            id,
		"type":          "job",
		"job_title":     title,
		"company_name":  company,
		"location":      "Oslo",
		"canonical_url": "https://www.finn.no/job/ad/" + id,
	}
}
