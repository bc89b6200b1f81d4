package httpapi

// SearchRequest is the body of the profile/product/stall search endpoints.
type SearchRequest struct {
	Query        string `json:"query"`
	BusinessType string `json:"business_type,omitempty"`
	Pubkey       string `json:"pubkey,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// ChatMessage is one turn of a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse carries the model's final text.
type ChatResponse struct {
	Content string `json:"content"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
