package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	auth "github.com/lumichat/backend/internal/service/auth"
	"github.com/lumichat/backend/internal/store"
)

func newTestService(t *testing.T) *auth.Service {
	t.Helper()
	db, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return auth.NewService(db, "test-secret", time.Hour)
}

func TestRegisterLoginVerify(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	account, token, err := svc.Register(ctx, "Admin@Example.com", "hunter2", "Grace Hopper")
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if account.Email != "admin@example.com" {
		t.Fatalf("expected normalized email, got %s", account.Email)
	}
	if token == "" {
		t.Fatal("expected token from register")
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken err: %v", err)
	}
	if claims.AdminID != account.ID || claims.Email != account.Email {
		t.Fatalf("unexpected claims %+v", claims)
	}

	loggedIn, loginToken, err := svc.Login(ctx, "admin@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if loggedIn.ID != account.ID {
		t.Fatalf("login returned wrong account: %s", loggedIn.ID)
	}
	if _, err := svc.VerifyToken(loginToken); err != nil {
		t.Fatalf("login token invalid: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "admin@example.com", "hunter2", ""); err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if _, _, err := svc.Register(ctx, "admin@example.com", "other", ""); err != auth.ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "admin@example.com", "hunter2", ""); err != nil {
		t.Fatalf("Register err: %v", err)
	}

	if _, _, err := svc.Login(ctx, "admin@example.com", "wrong"); err != auth.ErrBadCredentials {
		t.Fatalf("expected ErrBadCredentials for wrong password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "hunter2"); err != auth.ErrBadCredentials {
		t.Fatalf("expected ErrBadCredentials for unknown email, got %v", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.VerifyToken("not-a-token"); err != auth.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyTokenRejectsForeignSecret(t *testing.T) {
	db, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	issuer := auth.NewService(db, "secret-a", time.Hour)
	verifier := auth.NewService(db, "secret-b", time.Hour)

	_, token, err := issuer.Register(context.Background(), "admin@example.com", "hunter2", "")
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}

	if _, err := verifier.VerifyToken(token); err != auth.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken across secrets, got %v", err)
	}
}
