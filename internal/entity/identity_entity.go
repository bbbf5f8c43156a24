package entity

import "github.com/google/uuid"

// Identity is the requesting caller as asserted by the auth collaborator.
// Department membership is read fresh from the token on every request, so a
// membership change takes effect on the next call without any re-indexing.
type Identity struct {
	UserId     uuid.UUID
	Department string
	Admin      bool
}
