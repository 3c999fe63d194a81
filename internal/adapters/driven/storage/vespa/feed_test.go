package vespa

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

func testRecords(keys ...string) []InsertRecord {
	records := make([]InsertRecord, len(keys))
	for i, k := range keys {
		records[i] = InsertRecord{
			ID: DocumentID{Namespace: "embeddings", DocType: "books", UserKey: k}.String(),
			Fields: map[string]any{
				"content":   "text " + k,
				"embedding": Tensor{Values: []float32{1, 0}},
			},
		}
	}
	return records
}

func newTestFeedClient(t *testing.T, url string) *FeedClient {
	t.Helper()
	cfg := Config{URL: url, FeedURL: url}
	return NewFeedClient(http.DefaultClient, cfg, mustHandler(t, domain.HandlerBooks))
}

func TestFeed_AllRecordsAccepted(t *testing.T) {
	fake, srv := newFakeVespa(t)
	client := newTestFeedClient(t, srv.URL)

	results, err := client.Feed(context.Background(), testRecords("a-0", "a-1", "a-2"))

	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, testRecords("a-0", "a-1", "a-2")[i].ID, r.ID)
	}
	assert.Equal(t, 3, fake.count())
}

func TestFeed_OneRejectedFailsBatch(t *testing.T) {
	fake, srv := newFakeVespa(t)
	fake.reject["a-1"] = "Field 'embedding' has wrong dimension"
	client := newTestFeedClient(t, srv.URL)

	results, err := client.Feed(context.Background(), testRecords("a-0", "a-1", "a-2"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeed)
	assert.ErrorIs(t, err, domain.ErrBackend)
	assert.Contains(t, err.Error(), "Field 'embedding' has wrong dimension")
	assert.Contains(t, err.Error(), "1 of 3")

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestFeed_RejectsForeignDocumentType(t *testing.T) {
	_, srv := newFakeVespa(t)
	client := newTestFeedClient(t, srv.URL)
	rec := InsertRecord{ID: "id:embeddings:news::x", Fields: map[string]any{}}

	_, err := client.Feed(context.Background(), []InsertRecord{rec})

	assert.ErrorIs(t, err, domain.ErrFeed)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFeed_TransportFailure(t *testing.T) {
	_, srv := newFakeVespa(t)
	url := srv.URL
	srv.Close()
	client := newTestFeedClient(t, url)

	_, err := client.Feed(context.Background(), testRecords("a-0"))

	assert.ErrorIs(t, err, domain.ErrFeed)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestFeed_EscapesUserKey(t *testing.T) {
	var gotPath string
	srv := newRecordingServer(t, func(r *http.Request) { gotPath = r.URL.EscapedPath() })
	client := newTestFeedClient(t, srv.URL)

	_, err := client.Feed(context.Background(), testRecords("a b/c"))

	require.NoError(t, err)
	assert.Equal(t, "/document/v1/embeddings/books/docid/a%20b%2Fc", gotPath)
}

func TestFeedMessage(t *testing.T) {
	assert.Equal(t, "boom", feedMessage([]byte(`{"message":"boom"}`)))
	assert.Equal(t, "plain failure", feedMessage([]byte("plain failure\n")))
}

func TestEncodeFeed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFeed(&buf, testRecords("a-0", "a-1")))

	var decoded []struct {
		Put    string         `json:"put"`
		Fields map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "id:embeddings:books::a-0", decoded[0].Put)
	assert.Equal(t, "text a-1", decoded[1].Fields["content"])
	assert.Equal(t, map[string]any{"values": []any{1.0, 0.0}}, decoded[0].Fields["embedding"])
}

func TestEncodeFeed_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFeed(&buf, nil))

	assert.JSONEq(t, `[]`, buf.String())
}
