package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (s *fakeSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSession) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.cleared++
	return nil
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost:8080/"}, nil)

	assert.Equal(t, "http://localhost:8080", c.baseURL)
	assert.Equal(t, "/login", c.LoginPath())
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL}, &fakeSession{token: "tok-1"})

	var out map[string]string
	require.NoError(t, c.Post(context.Background(), "/cart", map[string]int{"quantity": 1}, &out))

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "ok", out["status"])
}

func TestClient_NoTokenStillSends(t *testing.T) {
	var hasAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL}, &fakeSession{})

	var out []string
	require.NoError(t, c.Get(context.Background(), "/category", nil, &out))
	assert.False(t, hasAuth)
}

func TestClient_QueryParameters(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL}, nil)
	require.NoError(t, c.Get(context.Background(), "banner", url.Values{"page": {"2"}, "limit": {"10"}}, nil))

	assert.Equal(t, "2", gotQuery.Get("page"))
	assert.Equal(t, "10", gotQuery.Get("limit"))
}

func TestClient_UnauthorizedClearsSessionAndRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"jwt expired"}`))
	}))
	defer server.Close()

	sess := &fakeSession{token: "stale"}
	var redirectedTo string
	c := New(Config{BaseURL: server.URL, LoginPath: "/signin"}, sess,
		WithUnauthorizedHandler(func(_ context.Context, loginPath string) { redirectedTo = loginPath }))

	err := c.Get(context.Background(), "/cart", nil, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "jwt expired", apiErr.Message)
	assert.Equal(t, 1, sess.cleared)
	assert.Equal(t, "", sess.Token())
	assert.Equal(t, "/signin", redirectedTo)
}

func TestClient_ErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", http.StatusConflict, `{"message":"Product already in wishlist"}`, "Product already in wishlist"},
		{"error field", http.StatusBadRequest, `{"error":"Invalid quantity"}`, "Invalid quantity"},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down"},
		{"empty body", http.StatusInternalServerError, "", "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			sess := &fakeSession{token: "tok"}
			c := New(Config{BaseURL: server.URL}, sess)
			err := c.Post(context.Background(), "/wishlist", map[string]string{"productId": "p1"}, nil)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.UserMessage())
			assert.False(t, errors.Is(err, ErrUnauthorized))
			assert.Equal(t, 0, sess.cleared)
		})
	}
}

func TestClient_DoMultipart(t *testing.T) {
	var name, filename, content string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		name = r.FormValue("name")
		f, hdr, err := r.FormFile("logo")
		require.NoError(t, err)
		defer f.Close()
		filename = hdr.Filename
		b, _ := io.ReadAll(f)
		content = string(b)
		w.Write([]byte(`{"_id":"b1"}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL}, &fakeSession{token: "tok"})
	var out struct {
		ID string `json:"_id"`
	}
	err := c.DoMultipart(context.Background(), http.MethodPost, "/brand", Multipart{
		Fields: map[string]string{"name": "Acme Tiles"},
		Files:  []File{{Field: "logo", Filename: "logo.png", Content: strings.NewReader("PNG")}},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "b1", out.ID)
	assert.Equal(t, "Acme Tiles", name)
	assert.Equal(t, "logo.png", filename)
	assert.Equal(t, "PNG", content)
}
