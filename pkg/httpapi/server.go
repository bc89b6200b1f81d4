// Package httpapi serves the REST surface of the bridge: search endpoints,
// resource lookups, refresh control, and the chat endpoint. Handlers are
// thin wrappers over the shared tool registry so the REST and MCP surfaces
// cannot drift apart.
package httpapi

import (
	"encoding/json"
	"net/http"
	"regexp"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/synvya/nostrmarket/pkg/chat"
	"github.com/synvya/nostrmarket/pkg/errmodel"
	"github.com/synvya/nostrmarket/pkg/llm"
	"github.com/synvya/nostrmarket/pkg/tools"
)

var pubkeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Config wires the REST surface.
type Config struct {
	Registry *tools.Registry
	Chat     *chat.Service // nil disables /api/chat
	Version  string
	// BearerToken guards /api/ routes when non-empty.
	BearerToken string
	// MCP, when non-nil, is mounted at /mcp.
	MCP http.Handler
}

type server struct {
	cfg Config
	// adminGrant is used by the refresh endpoint; authenticated REST
	// callers hold the admin permission.
	adminGrant map[string]bool
}

// New builds the HTTP handler stack: routes, bearer auth, CORS, tracing.
func New(cfg Config) http.Handler {
	s := &server{cfg: cfg, adminGrant: map[string]bool{tools.PermAdmin: true}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/search_profiles", s.toolHandler("search_profiles", nil))
	mux.HandleFunc("POST /api/search_business_profiles", s.toolHandler("search_business_profiles", nil))
	mux.HandleFunc("POST /api/search_products", s.toolHandler("search_products", nil))
	mux.HandleFunc("POST /api/search_stalls", s.toolHandler("search_stalls", nil))
	mux.HandleFunc("GET /api/profile/{pubkey}", s.handleProfile)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/business_types", s.handleBusinessTypes)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/refresh_status", s.handleRefreshStatus)
	if cfg.Chat != nil {
		mux.HandleFunc("POST /api/chat", s.handleChat)
		mux.HandleFunc("GET /api/debug/last_tool_loop", s.handleLastToolLoop)
	}
	if cfg.MCP != nil {
		mux.Handle("/mcp", cfg.MCP)
		mux.Handle("/mcp/", cfg.MCP)
	}

	var h http.Handler = mux
	h = bearerAuth(cfg.BearerToken, h)
	h = corsHandler(h)
	return otelhttp.NewHandler(h, "httpapi")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) invoke(w http.ResponseWriter, r *http.Request, tool string, args map[string]any, allowed map[string]bool) {
	out, err := s.cfg.Registry.SafeInvoke(r.Context(), tool, args, allowed)
	if err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// toolHandler decodes a SearchRequest body and forwards it to a tool.
func (s *server) toolHandler(tool string, allowed map[string]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errmodel.WriteHTTP(w, r, errmodel.Validation("bad_request", "request body is not valid JSON", nil))
			return
		}
		args := map[string]any{}
		if req.Query != "" {
			args["query"] = req.Query
		}
		if req.BusinessType != "" {
			args["business_type"] = req.BusinessType
		}
		if req.Pubkey != "" {
			args["pubkey"] = req.Pubkey
		}
		if req.Limit > 0 {
			args["limit"] = req.Limit
		}
		s.invoke(w, r, tool, args, allowed)
	}
}

func (s *server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "nostrmarket",
		"version": s.cfg.Version,
		"status":  "ok",
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: s.cfg.Version})
}

func (s *server) handleProfile(w http.ResponseWriter, r *http.Request) {
	pubkey := r.PathValue("pubkey")
	if !pubkeyPattern.MatchString(pubkey) {
		errmodel.WriteHTTP(w, r, errmodel.Validation("invalid_pubkey", "pubkey must be 64 hex characters", map[string]any{"pubkey": pubkey}))
		return
	}
	s.invoke(w, r, "get_profile_by_pubkey", map[string]any{"pubkey": pubkey}, nil)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{}
	for key, tool := range map[string]string{
		"profiles": "get_profile_stats",
		"stalls":   "get_stall_stats",
		"products": "get_product_stats",
	} {
		out, err := s.cfg.Registry.SafeInvoke(r.Context(), tool, nil, nil)
		if err != nil {
			errmodel.WriteHTTP(w, r, err)
			return
		}
		stats[key] = out["stats"]
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

func (s *server) handleBusinessTypes(w http.ResponseWriter, r *http.Request) {
	s.invoke(w, r, "get_business_types", nil, nil)
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.invoke(w, r, "refresh_database", nil, s.adminGrant)
}

func (s *server) handleRefreshStatus(w http.ResponseWriter, r *http.Request) {
	s.invoke(w, r, "get_refresh_status", nil, nil)
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errmodel.WriteHTTP(w, r, errmodel.Validation("bad_request", "request body is not valid JSON", nil))
		return
	}
	if len(req.Messages) == 0 {
		errmodel.WriteHTTP(w, r, errmodel.Validation("empty_messages", "messages must not be empty", nil))
		return
	}
	messages := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	text, err := s.cfg.Chat.Chat(r.Context(), messages)
	if err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Content: text})
}

func (s *server) handleLastToolLoop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"trace": s.cfg.Chat.LastToolTrace()})
}
