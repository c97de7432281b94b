package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

type exchangeRequest struct {
	Code         string `json:"code"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// handleExchangeToken swaps an OAuth authorization code for an access
// token by forwarding it to the provider's token endpoint along with the
// server-configured client secret. The token payload is returned unchanged.
func (s *Server) handleExchangeToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "Missing code")
		return
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = s.cfg.OAuthClientID
	}
	clientSecret := req.ClientSecret
	if clientSecret == "" {
		clientSecret = s.cfg.OAuthClientSecret
	}
	if clientSecret == "" {
		s.log.Error("oauth client secret not configured")
		writeError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}

	payload, err := json.Marshal(map[string]string{
		"client_id":     clientID,
		"client_secret": clientSecret,
		"code":          req.Code,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	upReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.cfg.OAuthTokenURL, bytes.NewReader(payload))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	upReq.Header.Set("Content-Type", "application/json")
	upReq.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(upReq)
	if err != nil {
		s.log.Error("token exchange failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to exchange token")
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode >= 400 {
		s.log.Error("token exchange failed", "status", resp.StatusCode)
		writeError(w, http.StatusInternalServerError, "Failed to exchange token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
