// Package relay implements the stateless HTTP relay the browser-facing
// dashboard uses to reach the agent service (which rejects direct
// cross-origin calls) and the source-control OAuth token endpoint. Each
// handler attaches the caller's bearer token, forwards a single upstream
// request, and returns the upstream status and body; nothing is cached or
// retried.
package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the relay's upstream endpoints and OAuth exchange settings.
type Config struct {
	// AgentBaseURL is the fixed agent-service API root, e.g.
	// "https://api.devin.ai/v1".
	AgentBaseURL string

	// OAuth code exchange.
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string
}

// Server is the stateless relay. It holds no per-session state.
type Server struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// NewServer creates a relay server. A nil logger disables request logging.
func NewServer(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
		log:  logger,
	}
}

// Router returns the relay's HTTP handler.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/relay", s.handleRelay)
	mux.HandleFunc("/exchange-token", s.handleExchangeToken)
	return s.logMiddleware(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			"id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// relayRequest is the inbound relay envelope. Payload captures every field
// that is not part of the envelope itself.
type relayRequest struct {
	Action    string
	SessionID string
	APIKey    string
	Payload   map[string]any
}

func parseRelayRequest(body io.Reader) (*relayRequest, error) {
	var raw map[string]any
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}

	req := &relayRequest{Payload: raw}
	if v, ok := raw["action"].(string); ok {
		req.Action = v
	}
	if v, ok := raw["sessionId"].(string); ok {
		req.SessionID = v
	}
	if v, ok := raw["apiKey"].(string); ok {
		req.APIKey = v
	}
	delete(raw, "action")
	delete(raw, "sessionId")
	delete(raw, "apiKey")
	return req, nil
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	req, err := parseRelayRequest(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "Missing API key")
		return
	}

	base := strings.TrimRight(s.cfg.AgentBaseURL, "/")

	var method, upstreamURL string
	var payload any

	switch req.Action {
	case "createSession":
		method = http.MethodPost
		upstreamURL = base + "/sessions"
		payload = req.Payload

	case "sendMessage":
		if req.SessionID == "" {
			writeError(w, http.StatusBadRequest, "Missing session ID")
			return
		}
		method = http.MethodPost
		upstreamURL = fmt.Sprintf("%s/sessions/%s/messages", base, req.SessionID)
		payload = map[string]any{"content": req.Payload["message"]}

	case "getSession":
		if req.SessionID == "" {
			writeError(w, http.StatusBadRequest, "Missing session ID")
			return
		}
		method = http.MethodGet
		upstreamURL = fmt.Sprintf("%s/sessions/%s", base, req.SessionID)

	case "listSessions":
		method = http.MethodGet
		params := url.Values{}
		for _, key := range []string{"limit", "offset"} {
			if v, ok := req.Payload[key]; ok {
				params.Set(key, fmt.Sprint(v))
			}
		}
		upstreamURL = base + "/sessions"
		if len(params) > 0 {
			upstreamURL += "?" + params.Encode()
		}

	default:
		// Generic passthrough for actions not explicitly modeled.
		m, _ := req.Payload["method"].(string)
		p, _ := req.Payload["path"].(string)
		if m == "" || p == "" {
			writeError(w, http.StatusBadRequest, "Invalid action")
			return
		}
		method = strings.ToUpper(m)
		upstreamURL = base + p
		payload = req.Payload["data"]
		if params, ok := req.Payload["params"].(map[string]any); ok && len(params) > 0 {
			q := url.Values{}
			for k, v := range params {
				q.Set(k, fmt.Sprint(v))
			}
			sep := "?"
			if strings.Contains(upstreamURL, "?") {
				sep = "&"
			}
			upstreamURL += sep + q.Encode()
		}
	}

	s.forward(w, r, method, upstreamURL, payload, req.APIKey)
}

// forward issues the single upstream request and maps its result onto the
// relay response: body verbatim on success, {"error": ...} with the
// upstream status on failure.
func (s *Server) forward(w http.ResponseWriter, r *http.Request, method, upstreamURL string, payload any, apiKey string) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		body = bytes.NewReader(data)
	}

	upReq, err := http.NewRequestWithContext(r.Context(), method, upstreamURL, body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	upReq.Header.Set("Authorization", "Bearer "+apiKey)
	upReq.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(upReq)
	if err != nil {
		// No upstream status available
		s.log.Error("agent upstream error", "url", upstreamURL, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to communicate with agent API")
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to communicate with agent API")
		return
	}

	if resp.StatusCode >= 400 {
		s.log.Error("agent upstream error", "url", upstreamURL, "status", resp.StatusCode)
		// Preserve a structured upstream error body when there is one
		var upstreamErr any
		if err := json.Unmarshal(data, &upstreamErr); err != nil || upstreamErr == nil {
			upstreamErr = strings.TrimSpace(string(data))
		}
		writeJSON(w, resp.StatusCode, map[string]any{"error": upstreamErr})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
