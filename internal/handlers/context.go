package handlers

import (
	"context"

	"github.com/HammerMeetNail/rideparty/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

func SetUserInContext(ctx context.Context, user *models.Profile) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func GetUserFromContext(ctx context.Context) *models.Profile {
	user, _ := ctx.Value(userContextKey).(*models.Profile)
	return user
}
