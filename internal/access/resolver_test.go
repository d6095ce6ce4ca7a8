package access

import (
	"context"
	"testing"
	"time"

	"facet.views/internal/crypto"
	"facet.views/internal/models"
	"facet.views/internal/session"
	"facet.views/internal/store"
)

type fixture struct {
	store    *store.MemoryStore
	codec    *crypto.Codec
	sessions *session.Issuer
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMemoryStore()
	codec := crypto.NewCodec("resolver-test-secret")
	sessions := session.NewIssuer(codec.SessionKey())
	return &fixture{
		store:    s,
		codec:    codec,
		sessions: sessions,
		resolver: NewResolver(s, codec, sessions),
	}
}

func (f *fixture) addView(t *testing.T, id, slug string, visibility models.Visibility) *models.View {
	t.Helper()
	view := &models.View{
		ID:         id,
		Slug:       slug,
		Name:       "View " + id,
		OwnerID:    "owner-1",
		Visibility: visibility,
		Active:     true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := f.store.SaveView(context.Background(), view); err != nil {
		t.Fatalf("SaveView() error = %v", err)
	}
	return view
}

func (f *fixture) addToken(t *testing.T, id, viewID string, maxUses int) string {
	t.Helper()
	plaintext, digest, prefix, err := f.codec.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	token := &models.ShareToken{
		ID:        id,
		ViewID:    viewID,
		Digest:    digest,
		Prefix:    prefix,
		MaxUses:   maxUses,
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := f.store.SaveToken(context.Background(), token); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	return plaintext
}

func TestDecisionTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	public := f.addView(t, "v-public", "pub", models.VisibilityPublic)
	private := f.addView(t, "v-private", "priv", models.VisibilityPrivate)
	unlisted := f.addView(t, "v-unlisted", "unl", models.VisibilityUnlisted)
	password := f.addView(t, "v-password", "pwd", models.VisibilityPassword)

	shareToken := f.addToken(t, "t1", unlisted.ID, 0)
	privToken := f.addToken(t, "t2", private.ID, 0)

	passwordSession, _, err := f.sessions.Issue(password.ID, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name  string
		view  *models.View
		creds Credentials
		want  Verdict
	}{
		{"owner sees public", public, Credentials{OwnerID: "owner-1"}, VerdictAllow},
		{"owner sees private", private, Credentials{OwnerID: "owner-1"}, VerdictAllow},
		{"owner sees unlisted without token", unlisted, Credentials{OwnerID: "owner-1"}, VerdictAllow},
		{"owner sees password without session", password, Credentials{OwnerID: "owner-1"}, VerdictAllow},
		{"other owner is anonymous", private, Credentials{OwnerID: "owner-2"}, VerdictNotFound},

		{"public allows anonymous", public, Credentials{}, VerdictAllow},

		{"private yields not found", private, Credentials{}, VerdictNotFound},
		{"private ignores its own token", private, Credentials{ShareToken: privToken}, VerdictNotFound},
		{"private ignores password session", private, Credentials{PasswordSession: passwordSession}, VerdictNotFound},

		{"unlisted without token", unlisted, Credentials{}, VerdictNotFound},
		{"unlisted with valid token", unlisted, Credentials{ShareToken: shareToken}, VerdictAllow},
		{"unlisted with garbage token", unlisted, Credentials{ShareToken: "nonsense"}, VerdictNotFound},

		{"password without session", password, Credentials{}, VerdictRequirePassword},
		{"password with valid session", password, Credentials{PasswordSession: passwordSession}, VerdictAllow},
		{"password with garbage session", password, Credentials{PasswordSession: "nonsense"}, VerdictRequirePassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.resolver.Resolve(ctx, tt.view, tt.creds); got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCrossViewTokenRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	viewA := f.addView(t, "v-a", "view-a", models.VisibilityUnlisted)
	viewB := f.addView(t, "v-b", "view-b", models.VisibilityUnlisted)
	tokenA := f.addToken(t, "t-a", viewA.ID, 0)

	if got := f.resolver.Resolve(ctx, viewB, Credentials{ShareToken: tokenA}); got != VerdictNotFound {
		t.Errorf("token for view A against view B = %v, want not found", got)
	}
	if got := f.resolver.Resolve(ctx, viewA, Credentials{ShareToken: tokenA}); got != VerdictAllow {
		t.Errorf("token for view A against view A = %v, want allow", got)
	}
}

func TestPasswordSessionScopedToView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v2 := f.addView(t, "v2", "pwd-2", models.VisibilityPassword)
	v3 := f.addView(t, "v3", "pwd-3", models.VisibilityPassword)

	sess, _, err := f.sessions.Issue(v2.ID, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if got := f.resolver.Resolve(ctx, v2, Credentials{PasswordSession: sess}); got != VerdictAllow {
		t.Errorf("session for v2 against v2 = %v, want allow", got)
	}
	if got := f.resolver.Resolve(ctx, v3, Credentials{PasswordSession: sess}); got != VerdictRequirePassword {
		t.Errorf("session for v2 against v3 = %v, want require password", got)
	}
}

func TestInactiveViewNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view := f.addView(t, "v1", "gone", models.VisibilityPublic)
	view.Active = false
	if err := f.store.SaveView(ctx, view); err != nil {
		t.Fatalf("SaveView() error = %v", err)
	}

	if got := f.resolver.Resolve(ctx, view, Credentials{}); got != VerdictNotFound {
		t.Errorf("inactive view = %v, want not found", got)
	}
	// Inactivity is checked before the owner rule; owners reach inactive
	// views through the management API, not through resolution.
	if got := f.resolver.Resolve(ctx, view, Credentials{OwnerID: "owner-1"}); got != VerdictNotFound {
		t.Errorf("inactive view for owner = %v, want not found", got)
	}
}

func TestPeekDoesNotRedeem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view := f.addView(t, "v1", "single", models.VisibilityUnlisted)
	token := f.addToken(t, "t1", view.ID, 1)

	// Any number of peeks leaves the quota untouched.
	for i := 0; i < 3; i++ {
		if got := f.resolver.Peek(ctx, view, Credentials{ShareToken: token}); got != VerdictAllow {
			t.Fatalf("Peek() #%d = %v, want allow", i, got)
		}
	}

	if got := f.resolver.Resolve(ctx, view, Credentials{ShareToken: token}); got != VerdictAllow {
		t.Fatalf("Resolve() = %v, want allow", got)
	}
	// Quota exhausted only now.
	if got := f.resolver.Resolve(ctx, view, Credentials{ShareToken: token}); got != VerdictNotFound {
		t.Errorf("Resolve(exhausted) = %v, want not found", got)
	}
}

func TestRevokedTokenImmediatelyInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view := f.addView(t, "v1", "revocable", models.VisibilityUnlisted)
	token := f.addToken(t, "t1", view.ID, 0)

	if got := f.resolver.Peek(ctx, view, Credentials{ShareToken: token}); got != VerdictAllow {
		t.Fatalf("Peek() before revoke = %v, want allow", got)
	}

	if err := f.store.RevokeToken(ctx, "t1"); err != nil {
		t.Fatalf("RevokeToken() error = %v", err)
	}

	if got := f.resolver.Peek(ctx, view, Credentials{ShareToken: token}); got != VerdictNotFound {
		t.Errorf("Peek() after revoke = %v, want not found", got)
	}
	if got := f.resolver.Resolve(ctx, view, Credentials{ShareToken: token}); got != VerdictNotFound {
		t.Errorf("Resolve() after revoke = %v, want not found", got)
	}
}
