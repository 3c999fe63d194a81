package vespa

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeVespa is an in-memory stand-in for a Vespa container. It stores fed
// documents and answers every query with all of them, relevance 1.
type fakeVespa struct {
	mu       sync.Mutex
	docs     map[string]map[string]any
	order    []string
	reject   map[string]string
	queries  []QueryRequest
	requests atomic.Int32
}

func newFakeVespa(t *testing.T) (*fakeVespa, *httptest.Server) {
	t.Helper()
	f := &fakeVespa{docs: map[string]map[string]any{}, reject: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeVespa) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	switch {
	case strings.HasPrefix(r.URL.Path, "/document/v1/"):
		f.put(w, r)
	case r.URL.Path == "/search/":
		f.search(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeVespa) put(w http.ResponseWriter, r *http.Request) {
	// /document/v1/<ns>/<type>/docid/<key>
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/document/v1/"), "/", 4)
	if len(parts) != 4 || parts[2] != "docid" {
		http.Error(w, `{"message":"bad path"}`, http.StatusBadRequest)
		return
	}
	id := "id:" + parts[0] + ":" + parts[1] + "::" + parts[3]

	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := f.reject[parts[3]]; ok {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "message": msg})
		return
	}

	var body struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"message":"bad json"}`, http.StatusBadRequest)
		return
	}
	if _, ok := f.docs[id]; !ok {
		f.order = append(f.order, id)
	}
	f.docs[id] = body.Fields
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "pathId": r.URL.Path})
}

func (f *fakeVespa) search(w http.ResponseWriter, r *http.Request) {
	var q QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, "bad query", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)

	children := make([]map[string]any, 0, len(f.order))
	for _, id := range f.order {
		children = append(children, map[string]any{
			"id":        id,
			"relevance": 1.0,
			"fields":    f.docs[id],
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"root": map[string]any{
			"id":       "toplevel",
			"fields":   map[string]any{"totalCount": len(children)},
			"children": children,
		},
	})
}

func (f *fakeVespa) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func (f *fakeVespa) recordedQueries() []QueryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]QueryRequest(nil), f.queries...)
}
