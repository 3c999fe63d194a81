package vespa

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

func newTestStore(t *testing.T, url string, kind domain.HandlerKind) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.FeedURL = url
	cfg.Handler = kind
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func bookSegment(text, src, index string) domain.TextSegment {
	return domain.NewTextSegment(text, domain.NewMetadata(
		domain.MetadataTitle, "Dune",
		domain.MetadataSourceID, src,
		domain.MetadataSegmentIndex, index,
	))
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, DefaultURL, s.cfg.URL)
	assert.Equal(t, DefaultURL, s.cfg.FeedURL)
	assert.Equal(t, DefaultTimeout, s.cfg.Timeout)
	assert.Equal(t, "books", s.Handler().DocType())
}

func TestNew_InvalidHandler(t *testing.T) {
	_, err := New(Config{Handler: "papers"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestNew_TLSRequiresKeyWithCert(t *testing.T) {
	_, err := New(Config{EnableTLS: true, ClientCertPath: "/tmp/cert.pem"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNew_TLSBadCAFile(t *testing.T) {
	ca := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(ca, []byte("not a certificate"), 0o600))

	_, err := New(Config{EnableTLS: true, CACertPath: ca})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAddAll_LengthMismatchMakesNoRequest(t *testing.T) {
	fake, srv := newFakeVespa(t)
	s := newTestStore(t, srv.URL, domain.HandlerBooks)

	ids, err := s.AddAll(context.Background(),
		[][]float32{{1}, {2}},
		[]domain.TextSegment{bookSegment("a", "S", "0")})

	assert.Nil(t, ids)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int32(0), fake.requests.Load())
}

func TestAddAll_Empty(t *testing.T) {
	fake, srv := newFakeVespa(t)
	s := newTestStore(t, srv.URL, domain.HandlerBooks)

	ids, err := s.AddAll(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, int32(0), fake.requests.Load())
}

func TestAddAll_ReturnsDerivedIDs(t *testing.T) {
	_, srv := newFakeVespa(t)
	s := newTestStore(t, srv.URL, domain.HandlerBooks)

	ids, err := s.AddAll(context.Background(),
		[][]float32{{1, 0}, {0, 1}},
		[]domain.TextSegment{bookSegment("a", "BOOK", "0"), bookSegment("b", "BOOK", "1")})

	require.NoError(t, err)
	assert.Equal(t, []string{"id:embeddings:books::BOOK-0", "id:embeddings:books::BOOK-1"}, ids)
}

func TestAddAll_StrictFailureReturnsNoIDs(t *testing.T) {
	fake, srv := newFakeVespa(t)
	fake.reject["BOOK-1"] = "rejected"
	s := newTestStore(t, srv.URL, domain.HandlerBooks)

	ids, err := s.AddAll(context.Background(),
		[][]float32{{1}, {2}, {3}},
		[]domain.TextSegment{
			bookSegment("a", "BOOK", "0"),
			bookSegment("b", "BOOK", "1"),
			bookSegment("c", "BOOK", "2"),
		})

	assert.Nil(t, ids)
	assert.ErrorIs(t, err, domain.ErrFeed)
	assert.Contains(t, err.Error(), "rejected")
}

func TestAdd_ReingestingSameSourceUpdates(t *testing.T) {
	fake, srv := newFakeVespa(t)
	s := newTestStore(t, srv.URL, domain.HandlerBooks)
	ctx := context.Background()

	first, err := s.Add(ctx, []float32{1}, bookSegment("v1", "BOOK", "0"))
	require.NoError(t, err)
	second, err := s.Add(ctx, []float32{1}, bookSegment("v2", "BOOK", "0"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.count())
}

func TestAdd_IdenticalTextWithoutSourceIsDeduplicated(t *testing.T) {
	fake, srv := newFakeVespa(t)
	s := newTestStore(t, srv.URL, domain.HandlerBooks)
	ctx := context.Background()
	seg := domain.NewTextSegment("same words", domain.NewMetadata(domain.MetadataTitle, "T"))

	first, err := s.Add(ctx, []float32{1}, seg)
	require.NoError(t, err)
	second, err := s.Add(ctx, []float32{1}, seg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.count())
}

func TestAddWithID_Unsupported(t *testing.T) {
	fake, srv := newFakeVespa(t)
	s := newTestStore(t, srv.URL, domain.HandlerBooks)

	err := s.AddWithID(context.Background(), "my-id", []float32{1})

	assert.ErrorIs(t, err, domain.ErrUnsupported)
	assert.Equal(t, int32(0), fake.requests.Load())
}

func TestRoundTrip_Books(t *testing.T) {
	fake, srv := newFakeVespa(t)
	s := newTestStore(t, srv.URL, domain.HandlerBooks)
	ctx := context.Background()
	embedding := []float32{0.25, 0.5, 0.75}

	id, err := s.Add(ctx, embedding, bookSegment("The spice must flow.", "DUNE", "4"))
	require.NoError(t, err)

	matches, err := s.Search(ctx, domain.SearchRequest{Embedding: embedding, MaxResults: 5, MinScore: 0})
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Equal(t, id, matches[0].ID)
	assert.Equal(t, "The spice must flow.", matches[0].Segment.Text)
	assert.Equal(t, "Dune", matches[0].Segment.Metadata.Value(domain.MetadataTitle))
	assert.Equal(t, "4", matches[0].Segment.Metadata.Value(domain.MetadataSegmentIndex))
	assert.Equal(t, embedding, matches[0].Embedding)

	queries := fake.recordedQueries()
	require.Len(t, queries, 1)
	assert.NotContains(t, queries[0].YQL, "order by")
}

func TestRoundTrip_News(t *testing.T) {
	fake, srv := newFakeVespa(t)
	s := newTestStore(t, srv.URL, domain.HandlerNews)
	ctx := context.Background()
	seg := domain.NewTextSegment("Rates held steady.", domain.NewMetadata(
		domain.MetadataURL, "http://news.example/rates",
		domain.MetadataTitle, "Rates",
		domain.MetadataNewsID, "ABC",
		domain.MetadataSourceID, "ABC",
		domain.MetadataTimestamp, "1710330674000",
		domain.MetadataSegmentIndex, "0",
	))

	_, err := s.Add(ctx, []float32{1, 1}, seg)
	require.NoError(t, err)

	matches, err := s.Search(ctx, domain.SearchRequest{Embedding: []float32{1, 1}, MaxResults: 3})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "id:embeddings:news::ABC-0", matches[0].ID)
	assert.Equal(t, "http://news.example/rates", matches[0].Segment.Metadata.Value(domain.MetadataURL))
	assert.Equal(t, "1710330674000", matches[0].Segment.Metadata.Value(domain.MetadataTimestamp))
	assert.Contains(t, fake.recordedQueries()[0].YQL, "order by ts desc")
}

func TestClose_RejectsFurtherCalls(t *testing.T) {
	_, srv := newFakeVespa(t)
	s := newTestStore(t, srv.URL, domain.HandlerBooks)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Add(context.Background(), []float32{1}, bookSegment("a", "S", "0"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Search(context.Background(), domain.SearchRequest{Embedding: []float32{1}, MaxResults: 1})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClose_WaitsForInflight(t *testing.T) {
	_, srv := newFakeVespa(t)
	s := newTestStore(t, srv.URL, domain.HandlerBooks)

	done, err := s.begin()
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		_ = s.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a request was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	done()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the request finished")
	}
}
