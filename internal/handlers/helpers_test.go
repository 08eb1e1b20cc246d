package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HammerMeetNail/rideparty/internal/models"
	"github.com/HammerMeetNail/rideparty/internal/testutil"
)

func withUser(req *http.Request, user *models.Profile) *http.Request {
	return req.WithContext(SetUserInContext(req.Context(), user))
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeAction(t *testing.T, rr *httptest.ResponseRecorder) ActionResponse {
	t.Helper()
	var response ActionResponse
	testutil.DecodeJSON(t, rr, &response)
	return response
}

// assertErrorResponse checks status, content type and the error message of an
// ErrorResponse body.
func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON content type, got %q", ct)
	}

	var response ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Error != message {
		t.Fatalf("expected error %q, got %q", message, response.Error)
	}
}
