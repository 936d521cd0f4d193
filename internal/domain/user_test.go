package domain

import (
	"context"
	"testing"
)

func TestIdentity_CanAccess(t *testing.T) {
	owner := &Identity{UserID: "u1", Role: RoleCustomer}
	other := &Identity{UserID: "u2", Role: RoleVendor}
	admin := &Identity{UserID: "root", Role: RoleAdmin}

	if !owner.CanAccess("u1") {
		t.Error("owner should access own wallet")
	}
	if other.CanAccess("u1") {
		t.Error("other user must not access wallet")
	}
	if !admin.CanAccess("u1") {
		t.Error("admin should access any wallet")
	}

	var anonymous *Identity
	if anonymous.CanAccess("u1") || anonymous.IsAdmin() {
		t.Error("nil identity must not access anything")
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if ActorID(ctx) != "system" {
		t.Fatal("expected system actor without identity")
	}

	ctx = WithIdentity(ctx, &Identity{UserID: "u1", Role: RoleCustomer})
	id, ok := IdentityFromContext(ctx)
	if !ok || id.UserID != "u1" {
		t.Fatalf("unexpected identity %+v ok=%v", id, ok)
	}
	if ActorID(ctx) != "u1" {
		t.Fatalf("ActorID() = %s", ActorID(ctx))
	}
}
