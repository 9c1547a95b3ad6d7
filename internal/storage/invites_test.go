package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInviteCode_Lifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.CreateInviteCode(ctx, "alpha", 42, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	inv, err := st.GetInviteCode(ctx, "alpha")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !inv.Enabled || inv.UsedBy != nil {
		t.Fatalf("fresh code should be enabled and unused: %+v", inv)
	}

	ok, err := st.ConsumeInviteCode(ctx, "alpha", 7)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !ok {
		t.Fatal("first consume rejected")
	}

	// Second consume must fail: the code is single-use.
	ok, err = st.ConsumeInviteCode(ctx, "alpha", 8)
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if ok {
		t.Fatal("code consumed twice")
	}

	inv, err = st.GetInviteCode(ctx, "alpha")
	if err != nil {
		t.Fatalf("get after consume: %v", err)
	}
	if inv.UsedBy == nil || *inv.UsedBy != 7 {
		t.Fatalf("used_by = %v, want 7", inv.UsedBy)
	}
}

func TestInviteCode_ExpiredIsRejected(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	if err := st.CreateInviteCode(ctx, "stale", 42, &past); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := st.ConsumeInviteCode(ctx, "stale", 7)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if ok {
		t.Fatal("expired code accepted")
	}
}

func TestInviteCode_RevokeDisables(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.CreateInviteCode(ctx, "beta", 42, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	ok, err := st.RevokeInviteCode(ctx, "beta")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !ok {
		t.Fatal("revoke reported no change")
	}

	ok, err = st.ConsumeInviteCode(ctx, "beta", 7)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if ok {
		t.Fatal("revoked code accepted")
	}
}

func TestInviteCode_UnknownIsNotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.GetInviteCode(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
