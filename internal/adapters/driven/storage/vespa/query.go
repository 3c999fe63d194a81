package vespa

// QueryRequest is the JSON body POSTed to /search/.
type QueryRequest struct {
	YQL     string         `json:"yql"`
	Input   map[string]any `json:"input"`
	Ranking string         `json:"ranking"`
	Hits    int            `json:"hits,omitempty"`
}
