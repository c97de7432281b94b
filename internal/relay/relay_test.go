package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postRelay(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/relay", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	msg, _ := resp["error"].(string)
	return msg
}

func TestRelay_MissingAPIKey(t *testing.T) {
	upstreamCalled := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalled = true
	}))
	defer upstream.Close()

	srv := NewServer(Config{AgentBaseURL: upstream.URL}, nil)
	w := postRelay(t, srv.Router(), `{"action":"listSessions"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing API key", decodeError(t, w))
	assert.False(t, upstreamCalled, "relay must reject before any upstream call")
}

func TestRelay_InvalidAction(t *testing.T) {
	srv := NewServer(Config{AgentBaseURL: "http://unused.invalid"}, nil)

	// Unknown action without method/path
	w := postRelay(t, srv.Router(), `{"action":"reboot","apiKey":"k"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid action", decodeError(t, w))

	// Only one of method/path present is still invalid
	w = postRelay(t, srv.Router(), `{"action":"reboot","apiKey":"k","method":"GET"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid action", decodeError(t, w))
}

func TestRelay_GenericPassthrough(t *testing.T) {
	var gotMethod, gotPath, gotQuery, gotAuth string
	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	srv := NewServer(Config{AgentBaseURL: upstream.URL}, nil)
	w := postRelay(t, srv.Router(),
		`{"action":"custom","apiKey":"secret","method":"post","path":"/snapshots","data":{"name":"x"},"params":{"dry":"1"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/snapshots", gotPath)
	assert.Equal(t, "dry=1", gotQuery)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.JSONEq(t, `{"name":"x"}`, string(gotBody))
}

func TestRelay_SendMessage(t *testing.T) {
	var gotPath string
	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	srv := NewServer(Config{AgentBaseURL: upstream.URL}, nil)

	// Missing session ID
	w := postRelay(t, srv.Router(), `{"action":"sendMessage","apiKey":"k","message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing session ID", decodeError(t, w))

	// With session ID the message is wrapped as content
	w = postRelay(t, srv.Router(), `{"action":"sendMessage","apiKey":"k","sessionId":"s1","message":"hi"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/sessions/s1/messages", gotPath)
	assert.JSONEq(t, `{"content":"hi"}`, string(gotBody))
}

func TestRelay_GetSession_RequiresSessionID(t *testing.T) {
	srv := NewServer(Config{AgentBaseURL: "http://unused.invalid"}, nil)
	w := postRelay(t, srv.Router(), `{"action":"getSession","apiKey":"k"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing session ID", decodeError(t, w))
}

func TestRelay_ListSessions_QueryParams(t *testing.T) {
	var gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"sessions":[]}`))
	}))
	defer upstream.Close()

	srv := NewServer(Config{AgentBaseURL: upstream.URL}, nil)
	w := postRelay(t, srv.Router(), `{"action":"listSessions","apiKey":"k","limit":20}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "limit=20", gotQuery)
}

func TestRelay_CreateSession_ForwardsPayloadVerbatim(t *testing.T) {
	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"session_id":"new-1","status":"running"}`))
	}))
	defer upstream.Close()

	srv := NewServer(Config{AgentBaseURL: upstream.URL}, nil)
	w := postRelay(t, srv.Router(),
		`{"action":"createSession","apiKey":"k","prompt":"fix it","tags":["repo:a/b","issue:1"]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	// Envelope fields are stripped, everything else goes upstream untouched
	assert.JSONEq(t, `{"prompt":"fix it","tags":["repo:a/b","issue:1"]}`, string(gotBody))
	assert.JSONEq(t, `{"session_id":"new-1","status":"running"}`, w.Body.String())
}

func TestRelay_UpstreamErrorPropagated(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"detail":"quota exhausted"}`))
	}))
	defer upstream.Close()

	srv := NewServer(Config{AgentBaseURL: upstream.URL}, nil)
	w := postRelay(t, srv.Router(), `{"action":"listSessions","apiKey":"k"}`)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	inner, ok := resp["error"].(map[string]any)
	require.True(t, ok, "upstream error body should be preserved structurally")
	assert.Equal(t, "quota exhausted", inner["detail"])
}

func TestRelay_TransportErrorIs500(t *testing.T) {
	// Point at a closed port
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	srv := NewServer(Config{AgentBaseURL: upstream.URL}, nil)
	w := postRelay(t, srv.Router(), `{"action":"listSessions","apiKey":"k"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, decodeError(t, w))
}

func TestRelay_CORSPreflight(t *testing.T) {
	srv := NewServer(Config{AgentBaseURL: "http://unused.invalid"}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/relay", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

// --- Token exchange ---

func postExchange(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/exchange-token", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExchangeToken_MethodNotAllowed(t *testing.T) {
	srv := NewServer(Config{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/exchange-token", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestExchangeToken_MissingCode(t *testing.T) {
	srv := NewServer(Config{OAuthClientSecret: "sek"}, nil)
	w := postExchange(t, srv.Router(), `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing code", decodeError(t, w))
}

func TestExchangeToken_MissingSecret(t *testing.T) {
	srv := NewServer(Config{}, nil)
	w := postExchange(t, srv.Router(), `{"code":"abc"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server configuration error", decodeError(t, w))
}

func TestExchangeToken_Success(t *testing.T) {
	var gotBody map[string]string
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"access_token":"tok-xyz","token_type":"bearer"}`))
	}))
	defer provider.Close()

	srv := NewServer(Config{
		OAuthTokenURL:     provider.URL,
		OAuthClientID:     "client-1",
		OAuthClientSecret: "sek",
	}, nil)

	w := postExchange(t, srv.Router(), `{"code":"abc"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"access_token":"tok-xyz","token_type":"bearer"}`, w.Body.String())
	assert.Equal(t, "abc", gotBody["code"])
	assert.Equal(t, "client-1", gotBody["client_id"])
	assert.Equal(t, "sek", gotBody["client_secret"])
}

func TestExchangeToken_UpstreamFailure(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer provider.Close()

	srv := NewServer(Config{OAuthTokenURL: provider.URL, OAuthClientSecret: "sek"}, nil)
	w := postExchange(t, srv.Router(), `{"code":"abc"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to exchange token", decodeError(t, w))
}
