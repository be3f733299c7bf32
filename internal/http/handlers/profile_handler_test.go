// README: Handler tests for auth enforcement and domain error mapping.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"bloodlink/internal/http/handlers"
	httpmiddleware "bloodlink/internal/http/middleware"
	"bloodlink/internal/modules/blood"
	"bloodlink/internal/modules/profile"
	"bloodlink/internal/store"
)

const testSecret = "test-secret"

func buildTestRouter(t *testing.T) (*gin.Engine, *store.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mem := store.NewMemory()
	svc := profile.NewService(mem, nil, zap.NewNop())

	r := gin.New()
	api := r.Group("/api", httpmiddleware.Auth(testSecret))
	h := handlers.NewProfileHandler(svc)
	api.GET("/profile", h.Get)
	api.PUT("/profile/availability", h.SetAvailability)
	api.PUT("/profile/location", h.SetLocation)
	api.GET("/profile/stats", h.Stats)
	return r, mem
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(r *gin.Engine, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedProfile(t *testing.T, mem *store.Memory, identityRef string) {
	t.Helper()
	p := profile.Profile{
		ID:          "d1",
		IdentityRef: identityRef,
		Name:        "Donor One",
		BloodGroup:  blood.OPositive,
		Available:   true,
	}
	if err := mem.CreateProfile(context.Background(), &p); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func TestProfileRequiresToken(t *testing.T) {
	r, _ := buildTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/profile", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/api/profile", nil, "not-a-jwt")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with a garbage token, got %d", w.Code)
	}
}

func TestProfileUnknownIdentity(t *testing.T) {
	r, _ := buildTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/profile", nil, signToken(t, "identity-unknown"))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a token with no profile, got %d", w.Code)
	}
}

func TestSetAvailabilityRoundTrip(t *testing.T) {
	r, mem := buildTestRouter(t)
	seedProfile(t, mem, "identity-d1")
	token := signToken(t, "identity-d1")

	w := doRequest(r, http.MethodPut, "/api/profile/availability", map[string]any{"available": false}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	p, err := mem.GetProfile(context.Background(), "d1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.Available {
		t.Fatal("availability flag not persisted")
	}

	// missing field is a 400, not a silent default
	w = doRequest(r, http.MethodPut, "/api/profile/availability", map[string]any{}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing field, got %d", w.Code)
	}
}

func TestSetLocationValidationMapsTo422(t *testing.T) {
	r, mem := buildTestRouter(t)
	seedProfile(t, mem, "identity-d1")
	token := signToken(t, "identity-d1")

	w := doRequest(r, http.MethodPut, "/api/profile/location", map[string]any{"lat": 91.0, "lng": 0.0}, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for out-of-range coordinates, got %d", w.Code)
	}

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if _, ok := body.Fields["location"]; !ok {
		t.Fatalf("expected a location field error, got %v", body.Fields)
	}
}

func TestStatsEmpty(t *testing.T) {
	r, mem := buildTestRouter(t)
	seedProfile(t, mem, "identity-d1")

	w := doRequest(r, http.MethodGet, "/api/profile/stats", nil, signToken(t, "identity-d1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Donations  int `json:"donations"`
		TotalUnits int `json:"total_units"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if body.Donations != 0 || body.TotalUnits != 0 {
		t.Fatalf("expected zeroed stats, got %+v", body)
	}
}
