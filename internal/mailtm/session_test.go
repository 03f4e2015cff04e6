package mailtm_test

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempbox/internal/mailtm"
	"github.com/nhle/tempbox/tests/testutil"
)

func newClient(t *testing.T, p *testutil.FakeProvider, opts ...mailtm.Option) *mailtm.Client {
	t.Helper()
	return mailtm.NewClient(p.URL(), opts...)
}

func assertEmptySession(t *testing.T, c *mailtm.Client) {
	t.Helper()
	_, ok := c.Session()
	assert.False(t, ok)
	assert.False(t, c.Authenticated())
	assert.Empty(t, c.Token())
	assert.Empty(t, c.Password())
	assert.Empty(t, c.AuthHeader())
	acct, ok := c.Account()
	assert.False(t, ok)
	assert.Equal(t, mailtm.Account{}, acct)
}

func TestResolveDomainPicksFirst(t *testing.T) {
	p := testutil.NewFakeProvider(t, "example.com", "other.org")
	c := newClient(t, p)

	domains, err := c.ResolveDomain(context.Background())
	require.NoError(t, err)
	require.Len(t, domains, 2)
	assert.Equal(t, "example.com", c.Domain())
}

func TestResolveDomainNone(t *testing.T) {
	p := testutil.NewFakeProvider(t)
	c := newClient(t, p)

	_, err := c.ResolveDomain(context.Background())
	assert.ErrorIs(t, err, mailtm.ErrNoDomains)
	assert.Empty(t, c.Domain())
}

func TestRegisterAndAuthenticateGeneratesCredentials(t *testing.T) {
	p := testutil.NewFakeProvider(t, "example.com")
	c := newClient(t, p)
	ctx := context.Background()

	acct, err := c.RegisterAndAuthenticate(ctx, "", "")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[a-z]{10}@example\.com$`), acct.Address)
	assert.Regexp(t, regexp.MustCompile(`^[a-z]{16}$`), acct.Password)
	assert.True(t, p.HasAccount(acct.Address))

	sess, ok := c.Session()
	require.True(t, ok)
	assert.Equal(t, acct, sess.Account)
	assert.Equal(t, "example.com", sess.Domain)
	assert.Equal(t, "tok-"+acct.Address, c.Token())
	assert.Equal(t, "Bearer tok-"+acct.Address, c.AuthHeader())

	// A brand-new mailbox lists as empty, not as a failure.
	msgs, err := c.ListMessages(ctx)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
	assert.Equal(t, "Bearer tok-"+acct.Address, p.LastAuthorization())
}

func TestRegisterAndAuthenticateCustomLengths(t *testing.T) {
	p := testutil.NewFakeProvider(t, "example.com")
	c := newClient(t, p, mailtm.WithCredentialLengths(6, 8))

	acct, err := c.RegisterAndAuthenticate(context.Background(), "", "")
	require.NoError(t, err)
	assert.Regexp(t, `^[a-z]{6}@example\.com$`, acct.Address)
	assert.Len(t, acct.Password, 8)
}

func TestRegisterAndAuthenticateUsesGivenCredentials(t *testing.T) {
	p := testutil.NewFakeProvider(t, "example.com")
	c := newClient(t, p)

	acct, err := c.RegisterAndAuthenticate(context.Background(), "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, mailtm.Account{Address: "alice@example.com", Password: "s3cret-pass"}, acct)
}

func TestRegisterAndAuthenticateNoDomain(t *testing.T) {
	p := testutil.NewFakeProvider(t)
	c := newClient(t, p)

	_, err := c.RegisterAndAuthenticate(context.Background(), "", "")
	assert.ErrorIs(t, err, mailtm.ErrNoDomains)
	assert.Zero(t, p.Calls("POST /accounts"))
	assertEmptySession(t, c)
}

func TestRegisterFailureLeavesNoSession(t *testing.T) {
	p := testutil.NewFakeProvider(t, "example.com")
	c := newClient(t, p)
	ctx := context.Background()

	_, err := c.RegisterAndAuthenticate(ctx, "first", "password-one")
	require.NoError(t, err)

	// Registering the same address again is rejected by the provider.
	_, err = c.RegisterAndAuthenticate(ctx, "first", "password-one")
	require.Error(t, err)

	var apiErr *mailtm.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "already used")
	assertEmptySession(t, c)
}

func TestTokenFailureAfterRegistrationIsAtomic(t *testing.T) {
	p := testutil.NewFakeProvider(t, "example.com")
	p.FailWith("POST /token", http.StatusInternalServerError)
	c := newClient(t, p)

	_, err := c.RegisterAndAuthenticate(context.Background(), "bob", "password-bob")
	require.Error(t, err)

	assert.True(t, p.HasAccount("bob@example.com"), "registration step ran")
	assertEmptySession(t, c)
}

func TestAuthenticateExisting(t *testing.T) {
	p := testutil.NewFakeProvider(t, "example.com")
	p.AddAccount("carol@example.com", "carol-pass")
	c := newClient(t, p)

	acct, err := c.AuthenticateExisting(context.Background(), "carol@example.com", "carol-pass")
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", acct.Address)

	sess, ok := c.Session()
	require.True(t, ok)
	assert.Equal(t, "example.com", sess.Domain)
	assert.Zero(t, p.Calls("POST /accounts"))
}

func TestAuthenticateExistingBadPasswordResets(t *testing.T) {
	p := testutil.NewFakeProvider(t, "example.com")
	p.AddAccount("carol@example.com", "carol-pass")
	p.AddAccount("dave@example.com", "dave-pass")
	c := newClient(t, p)
	ctx := context.Background()

	_, err := c.AuthenticateExisting(ctx, "dave@example.com", "dave-pass")
	require.NoError(t, err)

	_, err = c.AuthenticateExisting(ctx, "carol@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, mailtm.IsAuthError(err))

	// The previous account's session does not survive the failed switch.
	assertEmptySession(t, c)
	_, err = c.ListMessages(ctx)
	assert.ErrorIs(t, err, mailtm.ErrUnauthenticated)
}

func TestResetIsIdempotent(t *testing.T) {
	p := testutil.NewFakeProvider(t, "example.com")
	c := newClient(t, p)

	_, err := c.RegisterAndAuthenticate(context.Background(), "", "")
	require.NoError(t, err)

	c.Reset()
	assertEmptySession(t, c)
	c.Reset()
	assertEmptySession(t, c)

	// The cached domain outlives the session.
	assert.Equal(t, "example.com", c.Domain())
}

func TestMe(t *testing.T) {
	p := testutil.NewFakeProvider(t, "example.com")
	c := newClient(t, p)
	ctx := context.Background()

	_, err := c.Me(ctx)
	assert.ErrorIs(t, err, mailtm.ErrUnauthenticated)

	acct, err := c.RegisterAndAuthenticate(ctx, "", "")
	require.NoError(t, err)

	info, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, acct.Address, info.Address)
}
