package testutil

import (
	"net/http"

	"github.com/google/uuid"

	id "fitgap/pkg/domain"
	"fitgap/pkg/requestcontext"
)

// Actor returns a fresh actor with the given role, as the auth middleware
// would establish it.
func Actor(role string) requestcontext.ActorInfo {
	return requestcontext.ActorInfo{
		ID:    id.UserID(uuid.New()),
		Email: role + "@example.com",
		Role:  role,
	}
}

// WithActor authenticates req as a fresh actor with the given role. An empty
// role leaves the request anonymous.
func WithActor(req *http.Request, role string) *http.Request {
	if role == "" {
		return req
	}
	ctx := requestcontext.WithActor(req.Context(), Actor(role))
	return req.WithContext(ctx)
}
