package model

// SearchConfig represents configuration for a semantic search
type SearchConfig struct {
	TopK int `json:"top_k"`
}

// DefaultSearchConfig returns the default search configuration
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		TopK: 5,
	}
}
