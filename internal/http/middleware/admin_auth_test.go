package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAdminJWT(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{name: "auth disabled", secret: "", header: "Bearer " + signedAdminToken(t, "secret", AdminRole, time.Minute), want: http.StatusUnauthorized},
		{name: "missing header", secret: "secret", want: http.StatusUnauthorized},
		{name: "not bearer", secret: "secret", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "wrong key", secret: "secret", header: "Bearer " + signedAdminToken(t, "wrong", AdminRole, time.Minute), want: http.StatusUnauthorized},
		{name: "expired", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", AdminRole, -time.Minute), want: http.StatusUnauthorized},
		{name: "no expiry", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", AdminRole, 0), want: http.StatusUnauthorized},
		{name: "wrong role", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", "viewer", time.Minute), want: http.StatusForbidden},
		{name: "valid", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", AdminRole, time.Minute), want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			AdminJWT(tt.secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				claims, ok := AdminClaimsFromContext(r.Context())
				if !ok || claims.Subject != "ops@momentworks.example" {
					t.Fatalf("expected admin claims in context, got %+v", claims)
				}
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestAdminJWTRejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, AdminClaims{
		Role:             AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	AdminJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func signedAdminToken(t *testing.T, secret, role string, ttl time.Duration) string {
	t.Helper()
	claims := AdminClaims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops@momentworks.example"},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
