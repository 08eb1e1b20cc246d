package handlers

import (
	"context"
	"testing"

	"github.com/HammerMeetNail/rideparty/internal/testutil"
)

func TestUserContext_RoundTrip(t *testing.T) {
	user := testutil.NewStudent("Sam", "State")

	ctx := SetUserInContext(context.Background(), user)
	got := GetUserFromContext(ctx)
	if got == nil || got.ID != user.ID || got.Email != user.Email {
		t.Fatalf("expected %+v, got %+v", user, got)
	}
}

func TestUserContext_Missing(t *testing.T) {
	tests := map[string]context.Context{
		"empty":      context.Background(),
		"wrong type": context.WithValue(context.Background(), userContextKey, "not a user"),
		"string key": context.WithValue(context.Background(), "user", testutil.NewProfile("x")), //nolint:staticcheck
		"nil user":   SetUserInContext(context.Background(), nil),
	}
	for name, ctx := range tests {
		t.Run(name, func(t *testing.T) {
			if GetUserFromContext(ctx) != nil {
				t.Fatal("expected no user")
			}
		})
	}
}

func TestUserContext_Overwrite(t *testing.T) {
	first := testutil.NewProfile("First")
	second := testutil.NewProfile("Second")

	ctx := SetUserInContext(SetUserInContext(context.Background(), first), second)
	if got := GetUserFromContext(ctx); got == nil || got.ID != second.ID {
		t.Fatalf("expected second user, got %+v", got)
	}
}
