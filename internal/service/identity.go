package service

import (
	"strings"

	"github.com/quillpost/internal/db"
)

// CapabilityBeAdmin is required to create posts.
const CapabilityBeAdmin = "beAdmin"

// Identity is the authenticated user attached to a request.
type Identity struct {
	ID       uint
	Username string
	Email    string
	IsAdmin  bool
	raw      map[string]interface{}
}

// IdentityFromUser builds an Identity from a stored user, keeping its raw attributes.
func IdentityFromUser(user *db.User) *Identity {
	if user == nil {
		return nil
	}
	return &Identity{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
		raw: map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"is_admin": user.IsAdmin,
		},
	}
}

// OriginalData returns a copy of the identity's raw attributes.
func (i *Identity) OriginalData() map[string]interface{} {
	if i == nil {
		return nil
	}
	clone := make(map[string]interface{}, len(i.raw))
	for key, value := range i.raw {
		clone[key] = value
	}
	return clone
}

// Authorizer decides whether an identity holds a capability.
type Authorizer interface {
	Authorize(identity *Identity, capability string) error
}

// RoleAuthorizer grants capabilities from the user's role flags.
type RoleAuthorizer struct{}

// Authorize returns an *AuthorizationError unless the identity holds capability.
func (RoleAuthorizer) Authorize(identity *Identity, capability string) error {
	denied := &AuthorizationError{Capability: capability}
	if identity == nil {
		return denied
	}
	denied.Username = identity.Username

	if strings.TrimSpace(capability) == CapabilityBeAdmin && identity.IsAdmin {
		return nil
	}
	return denied
}
