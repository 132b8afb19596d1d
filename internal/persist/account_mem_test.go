package persist

import (
	"context"
	"errors"
	"testing"
)

func TestAccountCreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	r := NewMemAccountRepo()

	acc, err := r.Create(ctx, "Gandalf", "mellon", "g@shire.me")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acc.ID == 0 {
		t.Fatal("account id should be assigned")
	}

	got, err := r.Authenticate(ctx, "gandalf", "mellon")
	if err != nil {
		t.Fatalf("authenticate with folded name: %v", err)
	}
	if got.ID != acc.ID {
		t.Fatalf("id = %d, want %d", got.ID, acc.ID)
	}
}

func TestAccountDuplicateFoldedName(t *testing.T) {
	ctx := context.Background()
	r := NewMemAccountRepo()
	r.Create(ctx, "Ñandú", "x", "")
	if _, err := r.Create(ctx, "ñandú", "y", ""); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("err = %v, want ErrAccountExists", err)
	}
}

func TestAccountBadPassword(t *testing.T) {
	ctx := context.Background()
	r := NewMemAccountRepo()
	r.Create(ctx, "frodo", "ring", "")
	if _, err := r.Authenticate(ctx, "frodo", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("err = %v, want ErrBadCredentials", err)
	}
	if _, err := r.Authenticate(ctx, "nobody", "ring"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown user err = %v, want ErrBadCredentials", err)
	}
}

func TestTunablesDefaultsAndOverrides(t *testing.T) {
	ctx := context.Background()
	repo := NewMemSettingsRepo()
	tun := NewTunables(repo, 0)

	if got := tun.Bool(ctx, "hambre_sed_habilitado", true); !got {
		t.Fatal("missing key should yield the default")
	}
	if got := tun.Int(ctx, "intervalo_sed", 8); got != 8 {
		t.Fatalf("int default = %d, want 8", got)
	}

	repo.Set(ctx, "intervalo_sed", "12")
	tun2 := NewTunables(repo, 0)
	if got := tun2.Int(ctx, "intervalo_sed", 8); got != 12 {
		t.Fatalf("override = %d, want 12", got)
	}

	repo.Set(ctx, "intervalo_sed", "banana")
	tun3 := NewTunables(repo, 0)
	if got := tun3.Int(ctx, "intervalo_sed", 8); got != 8 {
		t.Fatalf("unparsable value should yield default, got %d", got)
	}
}
