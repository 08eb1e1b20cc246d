// Package testutil provides fixtures and HTTP helpers shared by tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/rideparty/internal/models"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// NewProfile returns a profile with a fresh id and a unique email.
func NewProfile(name string) *models.Profile {
	now := time.Now()
	return &models.Profile{
		ID:        uuid.New(),
		Email:     RandomEmail(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewStudent is NewProfile with a university shown to others.
func NewStudent(name, university string) *models.Profile {
	p := NewProfile(name)
	p.University = Ptr(university)
	p.ShowUniversity = true
	return p
}

// NewParty returns an active party hosted by hostID expiring after ttl.
func NewParty(hostID uuid.UUID, destination string, ttl time.Duration) models.Party {
	now := time.Now()
	return models.Party{
		ID:          uuid.New(),
		HostID:      hostID,
		PartySize:   4,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		MeetupPoint: "Main Gate",
		Destination: destination,
		RideOptions: []string{},
		IsActive:    true,
		MemberCount: 1,
	}
}

// NewTestRequest creates a JSON request. Path values are given as
// name, value pairs and set as if the mux had matched them.
func NewTestRequest(method, path, body string, pathValues ...string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	return req
}

// NewTestRequestWithJSON creates a request whose body is data encoded as JSON.
func NewTestRequestWithJSON(t *testing.T, method, path string, data any, pathValues ...string) *http.Request {
	t.Helper()
	body, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return NewTestRequest(method, path, string(body), pathValues...)
}

// RandomEmail generates a random email for testing.
func RandomEmail() string {
	return uuid.New().String()[:8] + "@test.com"
}

// AssertStatusCode checks if the response has the expected status code.
func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// DecodeJSON decodes the response body into v.
func DecodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse JSON response %q: %v", rr.Body.String(), err)
	}
}

// ParseJSONObject decodes a JSON object response body.
func ParseJSONObject(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	DecodeJSON(t, rr, &result)
	return result
}

// AssertJSONContains checks a top-level key of a JSON object body.
func AssertJSONContains(t *testing.T, body []byte, key string, expected any) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if result[key] != expected {
		t.Errorf("expected %s to be %v, got %v", key, expected, result[key])
	}
}
