package auth

import (
	"context"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	id, ok := UserIDFromContext(ctx)
	if !ok || id != 42 {
		t.Fatalf("expected 42 got %d (ok=%v)", id, ok)
	}
	if a := ActorFromContext(ctx); a == nil || *a != 42 {
		t.Fatalf("ActorFromContext = %v", a)
	}
}

func TestSystemContextHasNoActor(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("background context should carry no user")
	}
	if ActorFromContext(context.Background()) != nil {
		t.Fatal("expected nil actor")
	}
	if ActorFromContext(WithUserID(context.Background(), 0)) != nil {
		t.Fatal("user id 0 is not an actor")
	}
}

func TestWithoutActor(t *testing.T) {
	ctx := WithIP(WithUserID(context.Background(), 7), "192.0.2.1")
	sys := WithoutActor(ctx)
	if ActorFromContext(sys) != nil {
		t.Fatal("expected the actor to be masked")
	}
	if IPFromContext(sys) != "192.0.2.1" {
		t.Fatal("ip must survive")
	}
	if a := ActorFromContext(ctx); a == nil || *a != 7 {
		t.Fatal("parent context must keep its actor")
	}
}

func TestIP(t *testing.T) {
	if IPFromContext(context.Background()) != "" {
		t.Fatal("expected empty ip")
	}
	if got := IPFromContext(WithIP(context.Background(), "192.0.2.10")); got != "192.0.2.10" {
		t.Fatalf("got %q", got)
	}
}
