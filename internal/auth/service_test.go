package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewService("secret")
	token, err := s.IssueToken("sess_1")
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if got != "sess_1" {
		t.Errorf("subject = %q", got)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	s := NewService("secret")
	good, _ := s.IssueToken("sess_1")

	expired := NewService("secret")
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, _ := expired.IssueToken("sess_1")

	otherKey, _ := NewService("other").IssueToken("sess_1")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "sess_1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"tampered", good + "x"},
		{"expired", old},
		{"wrong key", otherKey},
		{"alg none", none},
		{"no subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestSessionMiddleware(t *testing.T) {
	s := NewService("secret")
	token, _ := s.IssueToken("sess_1")

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.SessionMiddleware)
	api.HandleFunc("/sessions/{sessionId}/token", NewHandler(s).Refresh).Methods("POST")

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"header", "/api/sessions/sess_1/token", "Bearer " + token, http.StatusOK},
		{"query", "/api/sessions/sess_1/token?token=" + token, "", http.StatusOK},
		{"missing", "/api/sessions/sess_1/token", "", http.StatusUnauthorized},
		{"bad scheme", "/api/sessions/sess_1/token", "Basic " + token, http.StatusUnauthorized},
		{"other session", "/api/sessions/sess_2/token", "Bearer " + token, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			if tt.want != http.StatusOK {
				return
			}
			var resp tokenResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if sub, err := s.ValidateToken(resp.Token); err != nil || sub != "sess_1" {
				t.Errorf("refreshed token: %q, %v", sub, err)
			}
		})
	}
}
