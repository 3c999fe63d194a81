package vespa

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// newRecordingServer answers 200 {} after passing each request to inspect.
func newRecordingServer(t *testing.T, inspect func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inspect(r)
		_, _ = io.WriteString(w, `{"root":{"children":[]}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newStaticServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestSearchClient(t *testing.T, url string, kind domain.HandlerKind) *SearchClient {
	t.Helper()
	cfg := Config{URL: url, Handler: kind}
	return NewSearchClient(http.DefaultClient, cfg, mustHandler(t, kind))
}

func TestSearch_ParsesChildrenInBackendOrder(t *testing.T) {
	body := `{"root":{"id":"toplevel","relevance":1.0,"fields":{"totalCount":2},"children":[
		{"id":"id:embeddings:books::b-1","relevance":0.91,"source":"content",
		 "fields":{"documentid":"id:embeddings:books::b-1","content":"second","title":"Emma","segment_index":1,
		           "embedding":{"type":"tensor<float>(x[2])","values":[0.1,0.2]}}},
		{"id":"id:embeddings:books::a-0","relevance":0.95,"source":"content",
		 "fields":{"content":"first","title":"Dune","segment_index":0,
		           "embedding":{"values":[0.3,0.4]}}}
	]}}`
	srv := newStaticServer(t, http.StatusOK, body)
	client := newTestSearchClient(t, srv.URL, domain.HandlerBooks)

	matches, err := client.Search(context.Background(), []float32{0.1, 0.2}, 5, 0.5)

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "id:embeddings:books::b-1", matches[0].ID)
	assert.Equal(t, 0.91, matches[0].Score)
	assert.Equal(t, "second", matches[0].Segment.Text)
	assert.Equal(t, "Emma", matches[0].Segment.Metadata.Value(domain.MetadataTitle))
	assert.Equal(t, "1", matches[0].Segment.Metadata.Value(domain.MetadataSegmentIndex))
	assert.Equal(t, []float32{0.1, 0.2}, matches[0].Embedding)
	assert.Equal(t, 0.95, matches[1].Score)
}

func TestSearch_PostsQueryToSearchEndpoint(t *testing.T) {
	var method, path string
	var q QueryRequest
	srv := newRecordingServer(t, func(r *http.Request) {
		method, path = r.Method, r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&q)
	})
	client := newTestSearchClient(t, srv.URL+"/", domain.HandlerNews)

	_, err := client.Search(context.Background(), []float32{1, 2}, 3, 0.25)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/search/", path)
	assert.Contains(t, q.YQL, "from news")
	assert.Equal(t, "recommendation", q.Ranking)
	assert.Equal(t, 0.25, q.Input["query(threshold)"])
	assert.Equal(t, []any{1.0, 2.0}, q.Input["query(q_embedding)"])
}

func TestSearch_ErrorsArrayIsBackendError(t *testing.T) {
	body := `{"root":{"id":"toplevel","errors":[
		{"code":4,"summary":"Invalid query parameter","message":"Could not create query"},
		{"code":8,"summary":"Timed out"}
	]}}`
	srv := newStaticServer(t, http.StatusBadRequest, body)
	client := newTestSearchClient(t, srv.URL, domain.HandlerBooks)

	matches, err := client.Search(context.Background(), []float32{1}, 5, 0)

	assert.Nil(t, matches)
	assert.ErrorIs(t, err, domain.ErrBackend)
	assert.Contains(t, err.Error(),
		`[{"code":4,"summary":"Invalid query parameter","message":"Could not create query"},{"code":8,"summary":"Timed out"}]`)
}

func TestSearch_ErrorsWinOverSuccessStatus(t *testing.T) {
	srv := newStaticServer(t, http.StatusOK, `{"root":{"errors":[{"code":12}],"children":[]}}`)
	client := newTestSearchClient(t, srv.URL, domain.HandlerBooks)

	_, err := client.Search(context.Background(), []float32{1}, 5, 0)

	assert.ErrorIs(t, err, domain.ErrBackend)
}

func TestSearch_NoChildrenIsEmpty(t *testing.T) {
	srv := newStaticServer(t, http.StatusOK, `{"root":{"id":"toplevel","fields":{"totalCount":0}}}`)
	client := newTestSearchClient(t, srv.URL, domain.HandlerBooks)

	matches, err := client.Search(context.Background(), []float32{1}, 5, 0)

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearch_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"no root", `{"result":{}}`},
		{"hit without id", `{"root":{"children":[{"relevance":1,"fields":{}}]}}`},
		{"hit without relevance", `{"root":{"children":[{"id":"x","fields":{}}]}}`},
		{"hit without fields", `{"root":{"children":[{"id":"x","relevance":1}]}}`},
		{"hit without content", `{"root":{"children":[{"id":"x","relevance":1,"fields":{"title":"t","segment_index":0,"embedding":{"values":[1]}}}]}}`},
		{"hit without title", `{"root":{"children":[{"id":"x","relevance":1,"fields":{"content":"c","segment_index":0,"embedding":{"values":[1]}}}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newStaticServer(t, http.StatusOK, tt.body)
			client := newTestSearchClient(t, srv.URL, domain.HandlerBooks)

			_, err := client.Search(context.Background(), []float32{1}, 5, 0)

			assert.ErrorIs(t, err, domain.ErrParse)
		})
	}
}

func TestSearch_ServerErrorWithoutResultTree(t *testing.T) {
	srv := newStaticServer(t, http.StatusServiceUnavailable, "upstream down")
	client := newTestSearchClient(t, srv.URL, domain.HandlerBooks)

	_, err := client.Search(context.Background(), []float32{1}, 5, 0)

	assert.ErrorIs(t, err, domain.ErrBackend)
	assert.Contains(t, err.Error(), "503")
}

func TestSearch_InvalidArguments(t *testing.T) {
	client := newTestSearchClient(t, "http://127.0.0.1:1", domain.HandlerBooks)

	tests := []struct {
		name       string
		embedding  []float32
		maxResults int
		minScore   float64
	}{
		{"zero max results", []float32{1}, 0, 0.5},
		{"negative min score", []float32{1}, 5, -0.1},
		{"min score above one", []float32{1}, 5, 1.5},
		{"empty embedding", nil, 5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Search(context.Background(), tt.embedding, tt.maxResults, tt.minScore)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSearch_TimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	cfg := Config{URL: srv.URL}
	httpClient := &http.Client{Timeout: 50 * time.Millisecond}
	client := NewSearchClient(httpClient, cfg, mustHandler(t, domain.HandlerBooks))

	_, err := client.Search(context.Background(), []float32{1}, 5, 0)

	assert.ErrorIs(t, err, domain.ErrTransport)
}
