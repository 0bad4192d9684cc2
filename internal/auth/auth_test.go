package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestIssuer() *Issuer {
	return NewIssuer(IssuerConfig{Key: testKey, Issuer: "fintrack", Audience: "fintrack-clients", TTL: time.Hour})
}

var testUser = core.User{ID: "u-1", FullName: "Ada Lovelace", Email: "ada@example.com", IsActive: true}

func TestIssuer_RoundTrip(t *testing.T) {
	iss := newTestIssuer()
	token, exp, err := iss.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("unexpected expiry %v", exp)
	}

	claims, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "u-1" || claims.Email != "ada@example.com" || claims.FullName != "Ada Lovelace" || !claims.IsActive {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Error("expected a jti")
	}
}

func TestIssuer_Rejects(t *testing.T) {
	iss := newTestIssuer()
	token, _, _ := iss.Issue(testUser)

	tests := []struct {
		name   string
		issuer *Issuer
		token  string
	}{
		{"wrong key", NewIssuer(IssuerConfig{Key: strings.Repeat("x", 32), Issuer: "fintrack", Audience: "fintrack-clients", TTL: time.Hour}), token},
		{"wrong audience", NewIssuer(IssuerConfig{Key: testKey, Issuer: "fintrack", Audience: "other", TTL: time.Hour}), token},
		{"wrong issuer", NewIssuer(IssuerConfig{Key: testKey, Issuer: "other", Audience: "fintrack-clients", TTL: time.Hour}), token},
		{"garbage", iss, "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.issuer.Parse(tt.token); !errors.Is(err, core.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestIssuer_Expired(t *testing.T) {
	iss := newTestIssuer()
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := iss.Issue(testUser)
	if err != nil {
		t.Fatal(err)
	}
	iss.now = time.Now
	if _, err := iss.Parse(token); !errors.Is(err, core.ErrUnauthorized) || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(hash, "s3cret!") {
		t.Error("expected match")
	}
	if VerifyPassword(hash, "wrong") || VerifyPassword("", "s3cret!") {
		t.Error("expected mismatch")
	}
}

func TestResetToken(t *testing.T) {
	token, hash, err := NewResetToken()
	if err != nil {
		t.Fatal(err)
	}
	if len(token) != 64 || len(hash) != 64 {
		t.Fatalf("unexpected lengths %d %d", len(token), len(hash))
	}
	if HashToken(token) != hash || token == hash {
		t.Fatal("hash must be derived from token")
	}
}

func TestRequireAuth(t *testing.T) {
	iss := newTestIssuer()
	token, _, _ := iss.Issue(testUser)

	var gotSubject string
	h := RequireAuth(iss, func(w http.ResponseWriter, r *http.Request, err error) {
		http.Error(w, err.Error(), http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = Subject(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"basic scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusOK && gotSubject != "u-1" {
				t.Errorf("subject = %q", gotSubject)
			}
		})
	}
}
