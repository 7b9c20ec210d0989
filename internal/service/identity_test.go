package service

import (
	"context"
	"errors"
	"testing"

	"github.com/quillpost/internal/db"
	"golang.org/x/crypto/bcrypt"
)

func TestRoleAuthorizer(t *testing.T) {
	authz := RoleAuthorizer{}

	if err := authz.Authorize(nil, CapabilityBeAdmin); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("anonymous: expected authorization error, got %v", err)
	}

	err := authz.Authorize(&Identity{Username: "member"}, CapabilityBeAdmin)
	var authErr *AuthorizationError
	if !errors.As(err, &authErr) || authErr.Username != "member" || authErr.Capability != CapabilityBeAdmin {
		t.Fatalf("member: unexpected error %v", err)
	}

	if err := authz.Authorize(&Identity{Username: "admin", IsAdmin: true}, CapabilityBeAdmin); err != nil {
		t.Fatalf("admin: unexpected error %v", err)
	}
	if err := authz.Authorize(&Identity{Username: "admin", IsAdmin: true}, "editOthers"); err == nil {
		t.Fatalf("admin: unknown capability must be denied")
	}
}

func TestIdentityOriginalDataIsCopy(t *testing.T) {
	identity := IdentityFromUser(&db.User{Username: "alice", Email: "alice@example.com"})

	data := identity.OriginalData()
	if data["username"] != "alice" || data["email"] != "alice@example.com" {
		t.Fatalf("unexpected original data: %v", data)
	}
	data["username"] = "mallory"
	if identity.OriginalData()["username"] != "alice" {
		t.Fatalf("original data must not be mutable through the returned map")
	}

	var nilIdentity *Identity
	if nilIdentity.OriginalData() != nil {
		t.Fatalf("nil identity must expose no data")
	}
}

func TestUserService_Authenticate(t *testing.T) {
	gdb := setupServiceTestDB(t)
	hashed, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := db.User{Username: "alice", Email: "alice@example.com", Password: string(hashed), IsAdmin: true}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	svc := NewUserService(gdb)

	identity, err := svc.Authenticate(context.Background(), " alice ", "s3cret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.ID != user.ID || !identity.IsAdmin {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if _, err := svc.Authenticate(context.Background(), "alice", "wrong"); !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("wrong password: expected ErrInvalidLogin, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "bob", "s3cret"); !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("unknown user: expected ErrInvalidLogin, got %v", err)
	}

	loaded, err := svc.IdentityByID(context.Background(), user.ID)
	if err != nil || loaded.Username != "alice" {
		t.Fatalf("identity by id: %+v, %v", loaded, err)
	}
	if _, err := svc.IdentityByID(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
