package fakepassport_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanmiteko/bili-login/internal/client"
	"github.com/shanmiteko/bili-login/internal/client/crypto"
	"github.com/shanmiteko/bili-login/internal/client/domain"
	"github.com/shanmiteko/bili-login/internal/client/transport"
	"github.com/shanmiteko/bili-login/internal/fakepassport"
	shared "github.com/shanmiteko/bili-login/internal/shared/domain"
	"github.com/shanmiteko/bili-login/internal/shared/infra"
)

func newService(t *testing.T) *fakepassport.Service {
	t.Helper()
	ctx := context.Background()
	db, err := infra.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := fakepassport.NewBunChallengeRepository(ctx, db)
	require.NoError(t, err)
	key, err := fakepassport.EnsureKey("", 1024, nil)
	require.NoError(t, err)

	svc, err := fakepassport.NewService(fakepassport.Config{
		Key:        key,
		Accounts:   []fakepassport.Account{{Username: "alice", Password: "secret"}},
		Challenges: repo,
	})
	require.NoError(t, err)
	return svc
}

func newClient(t *testing.T, svc *fakepassport.Service) *client.Client {
	t.Helper()
	srv := httptest.NewServer(svc.Handler())
	t.Cleanup(srv.Close)

	tr, err := transport.NewHTTPTransport(transport.HTTPConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	c, err := client.New(context.Background(), client.Options{Transport: tr, Keep: true})
	require.NoError(t, err)
	return c
}

func TestLoginEndToEnd(t *testing.T) {
	c := newClient(t, newService(t))
	ctx := context.Background()

	params, err := c.BeginLogin(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Len(t, params.GT, 32)
	assert.Len(t, params.Challenge, 32)
	assert.NotEmpty(t, params.Token)

	res, err := c.CompleteLogin(ctx, "validate", "validate|jordan")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.True(t, strings.HasPrefix(res.RedirectURL, fakepassport.DefaultRedirectURL))
}

func TestWrongPasswordThenRetry(t *testing.T) {
	c := newClient(t, newService(t))
	ctx := context.Background()

	_, err := c.BeginLogin(ctx, "alice", "wrong")
	require.NoError(t, err)
	res, err := c.CompleteLogin(ctx, "v", "s")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, res.Outcome)
	assert.Equal(t, "账号或者密码错误", res.Message)

	// the challenge was spent, so the same session cannot be reused
	_, err = c.BeginLogin(ctx, "alice", "secret")
	assert.ErrorIs(t, err, domain.ErrSessionSubmitted)

	require.NoError(t, c.Reset(ctx))
	_, err = c.BeginLogin(ctx, "alice", "secret")
	require.NoError(t, err)
	res, err = c.CompleteLogin(ctx, "v", "s")
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestLoginRejectsReplayedChallenge(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	chal, err := svc.IssueChallenge(ctx)
	require.NoError(t, err)

	form := func() fakepassport.LoginForm {
		salt, keyPEM, err := svc.IssueKey()
		require.NoError(t, err)
		return fakepassport.LoginForm{
			Username:  "alice",
			Password:  encrypt(t, keyPEM, salt+"secret"),
			Token:     chal.Token,
			Challenge: chal.Challenge,
			Validate:  "v",
			Seccode:   "s",
		}
	}

	_, err = svc.Login(ctx, form())
	require.NoError(t, err)

	_, err = svc.Login(ctx, form())
	var rej *fakepassport.RejectError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, fakepassport.CodeCaptchaError, rej.Code)
}

func TestLoginRejections(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(f *fakepassport.LoginForm, salt string, keyPEM string)
		code   int
	}{
		{
			name:   "missing username",
			mutate: func(f *fakepassport.LoginForm, _, _ string) { f.Username = "" },
			code:   fakepassport.CodeRequestError,
		},
		{
			name:   "unknown token",
			mutate: func(f *fakepassport.LoginForm, _, _ string) { f.Token = "nope" },
			code:   fakepassport.CodeCaptchaError,
		},
		{
			name:   "challenge mismatch",
			mutate: func(f *fakepassport.LoginForm, _, _ string) { f.Challenge = "other" },
			code:   fakepassport.CodeCaptchaError,
		},
		{
			name:   "empty proof",
			mutate: func(f *fakepassport.LoginForm, _, _ string) { f.Seccode = "" },
			code:   fakepassport.CodeCaptchaError,
		},
		{
			name: "unknown salt",
			mutate: func(f *fakepassport.LoginForm, _, keyPEM string) {
				f.Password = encrypt(t, keyPEM, "0000000000000000secret")
			},
			code: fakepassport.CodeSubmitTimeout,
		},
		{
			name:   "not ciphertext",
			mutate: func(f *fakepassport.LoginForm, _, _ string) { f.Password = "plain" },
			code:   fakepassport.CodeBadCredentials,
		},
		{
			name: "unknown account",
			mutate: func(f *fakepassport.LoginForm, _, _ string) {
				f.Username = "bob"
			},
			code: fakepassport.CodeBadCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chal, err := svc.IssueChallenge(ctx)
			require.NoError(t, err)
			salt, keyPEM, err := svc.IssueKey()
			require.NoError(t, err)

			f := fakepassport.LoginForm{
				Username:  "alice",
				Password:  encrypt(t, keyPEM, salt+"secret"),
				Token:     chal.Token,
				Challenge: chal.Challenge,
				Validate:  "v",
				Seccode:   "s",
			}
			tt.mutate(&f, salt, keyPEM)

			_, err = svc.Login(ctx, f)
			var rej *fakepassport.RejectError
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tt.code, rej.Code)
		})
	}
}

func TestBunChallengeRepositoryConsumeOnce(t *testing.T) {
	ctx := context.Background()
	db, err := infra.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	defer db.Close()

	repo, err := fakepassport.NewBunChallengeRepository(ctx, db)
	require.NoError(t, err)

	chal := fakepassport.IssuedChallenge{Token: "t1", GT: "g1", Challenge: "c1"}
	require.NoError(t, repo.Save(ctx, chal))

	got, err := repo.Consume(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "g1", got.GT)
	assert.Equal(t, "c1", got.Challenge)

	_, err = repo.Consume(ctx, "t1")
	assert.ErrorIs(t, err, shared.ErrNotExist)
}

func TestEnsureKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passport.pem")

	created, err := fakepassport.EnsureKey(path, 1024, nil)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := fakepassport.EnsureKey(path, 1024, nil)
	require.NoError(t, err)
	assert.True(t, created.Equal(loaded))

	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0600))
	_, err = fakepassport.EnsureKey(bad, 1024, nil)
	assert.Error(t, err)
}

func encrypt(t *testing.T, keyPEM, plain string) string {
	t.Helper()
	ct, err := crypto.EncryptPassword(keyPEM, plain)
	require.NoError(t, err)
	return ct
}
