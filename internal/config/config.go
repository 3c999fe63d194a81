// Package config builds the typed application configuration from the
// ConfigStore, the process environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/opensearch"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/vespa"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
)

// Environment variables consulted by Load.
const (
	// EnvRSSFeeds replaces rss.feeds with a comma-separated list.
	EnvRSSFeeds = "RAGSAMPLE_RSS_FEEDS"

	// DefaultPasswordEnvVar holds the OpenSearch password.
	DefaultPasswordEnvVar = "OPENSEARCH_PASSWORD"
)

// Config is the complete application configuration.
type Config struct {
	Embeddings Embeddings
	Ollama     Ollama
	Chat       Chat

	// PromptTemplate overrides the answer prompt file when set.
	PromptTemplate string

	Vespa      vespa.Config
	OpenSearch OpenSearch
	SQLitePath string

	EpubDir string
	PDFDir  string
	RSS     RSS

	Server Server

	// MetricsInterval is the console metrics report period. Zero disables it.
	MetricsInterval time.Duration
}

// Embeddings selects the pipeline components used for ingestion.
type Embeddings struct {
	Store          domain.StoreKind
	Reader         domain.ReaderKind
	BatchSize      int
	MaxSegmentSize int
	MaxOverlapSize int
}

// Ollama configures the embedding and chat models.
type Ollama struct {
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	Timeout        time.Duration
	MaxRetries     int
	Dimensions     int
}

// Chat holds retrieval and conversation settings.
type Chat struct {
	MinScore   float64
	MaxResults int

	// Memory is the number of messages a chat session keeps.
	Memory int
}

// OpenSearch embeds the store config plus the name of the password variable.
type OpenSearch struct {
	opensearch.Config
	PasswordEnvVar string
}

// RSS configures the news reader.
type RSS struct {
	Feeds             []string
	RequestsPerSecond float64
}

// Server holds listener ports.
type Server struct {
	GRPCPort int
	HTTPPort int
}

// Default returns the configuration used when the file sets nothing.
func Default() *Config {
	return &Config{
		Embeddings: Embeddings{
			Store:          domain.StoreVespa,
			Reader:         domain.ReaderEPUB,
			BatchSize:      32,
			MaxSegmentSize: 1000,
			MaxOverlapSize: 100,
		},
		Ollama: Ollama{
			BaseURL:        "http://localhost:11434",
			EmbeddingModel: "all-minilm",
			ChatModel:      "mistral",
			Timeout:        60 * time.Second,
			MaxRetries:     3,
			Dimensions:     384,
		},
		Chat: Chat{
			MinScore:   0.6,
			MaxResults: 5,
			Memory:     10,
		},
		Vespa: vespa.DefaultConfig(),
		OpenSearch: OpenSearch{
			Config: opensearch.Config{
				URL:       opensearch.DefaultURL,
				Username:  "admin",
				IndexName: opensearch.DefaultIndexName,
				Timeout:   opensearch.DefaultTimeout,
			},
			PasswordEnvVar: DefaultPasswordEnvVar,
		},
		SQLitePath: expandHome("~/.ragsample/embeddings.db"),
		EpubDir:    "./epubs",
		PDFDir:     "./pdfs",
		RSS: RSS{
			RequestsPerSecond: 2,
		},
		Server: Server{
			GRPCPort: 4242,
			HTTPPort: 8088,
		},
		MetricsInterval: 2 * time.Second,
	}
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables that are already set win. A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads every known key from the store on top of Default, applies the
// environment overrides and validates the result.
func Load(store driven.ConfigStore) (*Config, error) {
	cfg := Default()
	r := &reader{store: store}

	e := &cfg.Embeddings
	e.Store = domain.StoreKind(r.text("embeddings.store", string(e.Store)))
	e.Reader = domain.ReaderKind(r.text("embeddings.reader", string(e.Reader)))
	e.BatchSize = r.integer("embeddings.batchSize", e.BatchSize)
	e.MaxSegmentSize = r.integer("embeddings.maxSegmentSize", e.MaxSegmentSize)
	e.MaxOverlapSize = r.integer("embeddings.maxOverlapSize", e.MaxOverlapSize)

	o := &cfg.Ollama
	o.BaseURL = r.text("ollama.baseUrl", o.BaseURL)
	o.EmbeddingModel = r.text("ollama.embeddingModel", o.EmbeddingModel)
	o.ChatModel = r.text("ollama.chatModel", o.ChatModel)
	o.Timeout = r.duration("ollama.timeout", o.Timeout)
	o.MaxRetries = r.integer("ollama.maxRetries", o.MaxRetries)
	o.Dimensions = r.integer("ollama.dimensions", o.Dimensions)

	c := &cfg.Chat
	c.MinScore = r.number("chat.minScore", c.MinScore)
	c.MaxResults = r.integer("chat.maxResults", c.MaxResults)
	c.Memory = r.integer("chat.memory", c.Memory)

	cfg.PromptTemplate = r.text("prompt.template", cfg.PromptTemplate)

	v := &cfg.Vespa
	v.URL = r.text("vespa.url", v.URL)
	v.FeedURL = r.text("vespa.feedUrl", v.URL)
	v.Timeout = r.duration("vespa.timeout", v.Timeout)
	v.RankProfile = r.text("vespa.rankProfile", v.RankProfile)
	v.RankingInputName = r.text("vespa.rankingInputName", v.RankingInputName)
	v.AvoidDups = r.boolean("vespa.avoidDups", v.AvoidDups)
	v.TargetHits = r.integer("vespa.targetHits", v.TargetHits)
	v.Handler = domain.HandlerKind(r.text("vespa.handler", string(v.Handler)))
	v.FeedConcurrency = r.integer("vespa.feedConcurrency", v.FeedConcurrency)
	v.EnableTLS = r.boolean("vespa.enableTls", v.EnableTLS)
	v.CACertPath = expandHome(r.text("vespa.caCertPath", v.CACertPath))
	v.ClientCertPath = expandHome(r.text("vespa.clientCertPath", v.ClientCertPath))
	v.ClientKeyPath = expandHome(r.text("vespa.clientKeyPath", v.ClientKeyPath))
	v.LogRequests = r.boolean("vespa.logRequests", v.LogRequests)

	osc := &cfg.OpenSearch
	osc.URL = r.text("opensearch.url", osc.URL)
	osc.Username = r.text("opensearch.username", osc.Username)
	osc.PasswordEnvVar = r.text("opensearch.passwordEnvVar", osc.PasswordEnvVar)
	osc.IndexName = r.text("opensearch.indexName", osc.IndexName)
	osc.Timeout = r.duration("opensearch.timeout", osc.Timeout)
	osc.InsecureSkipVerify = r.boolean("opensearch.insecureSkipVerify", osc.InsecureSkipVerify)

	cfg.SQLitePath = expandHome(r.text("sqlite.path", cfg.SQLitePath))
	cfg.EpubDir = expandHome(r.text("epub.dir", cfg.EpubDir))
	cfg.PDFDir = expandHome(r.text("pdf.dir", cfg.PDFDir))
	cfg.RSS.Feeds = r.list("rss.feeds", cfg.RSS.Feeds)
	cfg.RSS.RequestsPerSecond = r.number("rss.requestsPerSecond", cfg.RSS.RequestsPerSecond)

	cfg.Server.GRPCPort = r.integer("server.grpcPort", cfg.Server.GRPCPort)
	cfg.Server.HTTPPort = r.integer("server.httpPort", cfg.Server.HTTPPort)
	cfg.MetricsInterval = r.duration("metrics.reportInterval", cfg.MetricsInterval)

	if r.err != nil {
		return nil, r.err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies environment overrides.
func (c *Config) applyEnv() {
	if feeds := os.Getenv(EnvRSSFeeds); feeds != "" {
		c.RSS.Feeds = splitList(feeds)
	}
	if c.OpenSearch.PasswordEnvVar != "" {
		c.OpenSearch.Password = os.Getenv(c.OpenSearch.PasswordEnvVar)
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidInput}, args...)...))
	}

	if !c.Embeddings.Store.IsValid() {
		add("embeddings.store %q is not one of memory, sqlite, opensearch, vespa", c.Embeddings.Store)
	}
	if !c.Embeddings.Reader.IsValid() {
		add("embeddings.reader %q is not one of epub, pdf, rss", c.Embeddings.Reader)
	}
	if !c.Vespa.Handler.IsValid() {
		add("vespa.handler %q is not one of books, news", c.Vespa.Handler)
	}
	if c.Embeddings.BatchSize <= 0 {
		add("embeddings.batchSize must be positive, got %d", c.Embeddings.BatchSize)
	}
	if c.Embeddings.MaxSegmentSize <= 0 {
		add("embeddings.maxSegmentSize must be positive, got %d", c.Embeddings.MaxSegmentSize)
	}
	if c.Embeddings.MaxOverlapSize < 0 || c.Embeddings.MaxOverlapSize >= c.Embeddings.MaxSegmentSize {
		add("embeddings.maxOverlapSize must be in [0, maxSegmentSize), got %d", c.Embeddings.MaxOverlapSize)
	}
	if c.Chat.MinScore < 0 || c.Chat.MinScore > 1 {
		add("chat.minScore must be in [0, 1], got %v", c.Chat.MinScore)
	}
	if c.Chat.MaxResults <= 0 {
		add("chat.maxResults must be positive, got %d", c.Chat.MaxResults)
	}
	if c.Chat.Memory < 0 {
		add("chat.memory must not be negative, got %d", c.Chat.Memory)
	}
	if c.Ollama.MaxRetries < 0 {
		add("ollama.maxRetries must not be negative, got %d", c.Ollama.MaxRetries)
	}
	if c.RSS.RequestsPerSecond <= 0 {
		add("rss.requestsPerSecond must be positive, got %v", c.RSS.RequestsPerSecond)
	}
	if c.Vespa.TargetHits <= 0 {
		add("vespa.targetHits must be positive, got %d", c.Vespa.TargetHits)
	}

	return errors.Join(errs...)
}

// reader reads typed values and records the first type mismatch.
type reader struct {
	store driven.ConfigStore
	err   error
}

func (r *reader) fail(key, want string, got any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s must be a %s, got %T", domain.ErrInvalidInput, key, want, got)
	}
}

func (r *reader) text(key, def string) string {
	val, ok := r.store.Get(key)
	if !ok {
		return def
	}
	s, isStr := val.(string)
	if !isStr {
		r.fail(key, "string", val)
		return def
	}
	return s
}

func (r *reader) integer(key string, def int) int {
	val, ok := r.store.Get(key)
	if !ok {
		return def
	}
	switch val.(type) {
	case int, int64:
		return r.store.GetInt(key)
	default:
		r.fail(key, "integer", val)
		return def
	}
}

func (r *reader) number(key string, def float64) float64 {
	val, ok := r.store.Get(key)
	if !ok {
		return def
	}
	switch val.(type) {
	case float64, float32, int, int64:
		return r.store.GetFloat(key)
	default:
		r.fail(key, "number", val)
		return def
	}
}

func (r *reader) boolean(key string, def bool) bool {
	val, ok := r.store.Get(key)
	if !ok {
		return def
	}
	if _, isBool := val.(bool); !isBool {
		r.fail(key, "boolean", val)
		return def
	}
	return r.store.GetBool(key)
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	s := r.text(key, "")
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		if r.err == nil {
			r.err = fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
		}
		return def
	}
	return d
}

func (r *reader) list(key string, def []string) []string {
	val, ok := r.store.Get(key)
	if !ok {
		return def
	}
	if s, isStr := val.(string); isStr {
		return splitList(s)
	}
	list := r.store.GetStringSlice(key)
	if list == nil {
		r.fail(key, "list of strings", val)
		return def
	}
	return list
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Entry is a resolved setting shown by `config show`.
type Entry struct {
	Key   string
	Value string
}

// Entries lists every setting with its effective value. Secrets are masked.
func (c *Config) Entries() []Entry {
	password := ""
	if c.OpenSearch.Password != "" {
		password = "********"
	}
	prompt := "(prompt file)"
	if c.PromptTemplate != "" {
		prompt = fmt.Sprintf("%d characters", len(c.PromptTemplate))
	}

	return []Entry{
		{"embeddings.store", c.Embeddings.Store.String()},
		{"embeddings.reader", c.Embeddings.Reader.String()},
		{"embeddings.batchSize", fmt.Sprint(c.Embeddings.BatchSize)},
		{"embeddings.maxSegmentSize", fmt.Sprint(c.Embeddings.MaxSegmentSize)},
		{"embeddings.maxOverlapSize", fmt.Sprint(c.Embeddings.MaxOverlapSize)},
		{"ollama.baseUrl", c.Ollama.BaseURL},
		{"ollama.embeddingModel", c.Ollama.EmbeddingModel},
		{"ollama.chatModel", c.Ollama.ChatModel},
		{"ollama.timeout", c.Ollama.Timeout.String()},
		{"ollama.maxRetries", fmt.Sprint(c.Ollama.MaxRetries)},
		{"ollama.dimensions", fmt.Sprint(c.Ollama.Dimensions)},
		{"chat.minScore", fmt.Sprint(c.Chat.MinScore)},
		{"chat.maxResults", fmt.Sprint(c.Chat.MaxResults)},
		{"chat.memory", fmt.Sprint(c.Chat.Memory)},
		{"prompt.template", prompt},
		{"vespa.url", c.Vespa.URL},
		{"vespa.feedUrl", c.Vespa.FeedURL},
		{"vespa.timeout", c.Vespa.Timeout.String()},
		{"vespa.rankProfile", c.Vespa.RankProfile},
		{"vespa.rankingInputName", c.Vespa.RankingInputName},
		{"vespa.avoidDups", fmt.Sprint(c.Vespa.AvoidDups)},
		{"vespa.targetHits", fmt.Sprint(c.Vespa.TargetHits)},
		{"vespa.handler", c.Vespa.Handler.String()},
		{"vespa.feedConcurrency", fmt.Sprint(c.Vespa.FeedConcurrency)},
		{"vespa.enableTls", fmt.Sprint(c.Vespa.EnableTLS)},
		{"vespa.logRequests", fmt.Sprint(c.Vespa.LogRequests)},
		{"opensearch.url", c.OpenSearch.URL},
		{"opensearch.username", c.OpenSearch.Username},
		{"opensearch.password", password},
		{"opensearch.indexName", c.OpenSearch.IndexName},
		{"sqlite.path", c.SQLitePath},
		{"epub.dir", c.EpubDir},
		{"pdf.dir", c.PDFDir},
		{"rss.feeds", strings.Join(c.RSS.Feeds, ",")},
		{"rss.requestsPerSecond", fmt.Sprint(c.RSS.RequestsPerSecond)},
		{"server.grpcPort", fmt.Sprint(c.Server.GRPCPort)},
		{"server.httpPort", fmt.Sprint(c.Server.HTTPPort)},
		{"metrics.reportInterval", c.MetricsInterval.String()},
	}
}
