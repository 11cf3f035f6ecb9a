// internal/workers/resolve-product/models.go
package resolveproduct

type Input struct {
	RunID     string `json:"runId"`
	InputURL  string `json:"inputUrl,omitempty"`
	ProductID string `json:"productId,omitempty"`
}

type Output struct {
	ProductID    string `json:"productId"`
	CanonicalURL string `json:"canonicalUrl"`
}

// oracleReply is the strict JSON the resolution oracle is asked to return.
type oracleReply struct {
	ProductID    string `json:"productId"`
	CanonicalURL string `json:"canonicalUrl"`
	Error        string `json:"error"`
}
