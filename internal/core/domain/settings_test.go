package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreKind(t *testing.T) {
	tests := []struct {
		kind  StoreKind
		valid bool
	}{
		{StoreMemory, true},
		{StoreSQLite, true},
		{StoreOpenSearch, true},
		{StoreVespa, true},
		{StoreKind("chroma"), false},
		{StoreKind(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.kind.IsValid())
			if tt.valid {
				assert.NotEqual(t, unknownDescription, tt.kind.Description())
			} else {
				assert.Equal(t, unknownDescription, tt.kind.Description())
			}
		})
	}
}

func TestReaderKind(t *testing.T) {
	assert.True(t, ReaderEPUB.IsValid())
	assert.True(t, ReaderPDF.IsValid())
	assert.True(t, ReaderRSS.IsValid())
	assert.False(t, ReaderKind("docx").IsValid())
	assert.Equal(t, "rss", ReaderRSS.String())
	assert.Equal(t, unknownDescription, ReaderKind("docx").Description())
}

func TestHandlerKind(t *testing.T) {
	assert.True(t, HandlerBooks.IsValid())
	assert.True(t, HandlerNews.IsValid())
	assert.False(t, HandlerKind("Books").IsValid())
	assert.Equal(t, "news", HandlerNews.String())
}
