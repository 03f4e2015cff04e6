package mailtm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
)

// Account is a provider mailbox identity.
type Account struct {
	Address  string
	Password string
}

// Session is the authenticated state of the client. A Session value is
// built completely before it is installed and is never modified afterwards.
type Session struct {
	Account Account
	Token   string
	Domain  string
}

// ResolveDomain fetches the provider's domains and caches the first one
// for address construction.
func (c *Client) ResolveDomain(ctx context.Context) ([]Domain, error) {
	var coll Collection[Domain]
	err := c.do(ctx, request{method: http.MethodGet, path: "/domains"}, &coll, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("fetching domains")
		return nil, fmt.Errorf("fetching domains: %w", err)
	}
	if len(coll.Members) == 0 || coll.Members[0].Domain == "" {
		c.log.Warn().Msg("provider returned no domains")
		return nil, ErrNoDomains
	}

	c.mu.Lock()
	c.domain = coll.Members[0].Domain
	c.mu.Unlock()

	return coll.Members, nil
}

// Domain returns the cached domain, or "" when none was resolved yet.
func (c *Client) Domain() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.domain
}

// RegisterAndAuthenticate creates a new account on the provider and logs
// into it. Empty username or password are generated. Either both steps
// succeed and the new session is installed, or the client is left with
// no session at all.
func (c *Client) RegisterAndAuthenticate(
	ctx context.Context,
	username, password string,
) (Account, error) {
	c.Reset()

	domain := c.Domain()
	if domain == "" {
		if _, err := c.ResolveDomain(ctx); err != nil {
			return Account{}, fmt.Errorf("creating account: %w", err)
		}
		domain = c.Domain()
	}

	if username == "" {
		username = c.randString(c.usernameLength)
	}
	if password == "" {
		password = c.randString(c.passwordLength)
	}

	acct := Account{
		Address:  username + "@" + domain,
		Password: password,
	}

	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/accounts",
		body:   credentials{Address: acct.Address, Password: acct.Password},
	}, nil, nil)
	if err != nil {
		c.log.Warn().Err(err).Str("address", acct.Address).Msg("registering account")
		return Account{}, fmt.Errorf("registering %s: %w", acct.Address, err)
	}

	token, err := c.exchangeToken(ctx, acct)
	if err != nil {
		c.log.Warn().Err(err).Str("address", acct.Address).Msg("authenticating new account")
		return Account{}, fmt.Errorf("authenticating %s: %w", acct.Address, err)
	}

	c.install(&Session{Account: acct, Token: token, Domain: domain})
	c.log.Info().Str("address", acct.Address).Msg("account created")
	return acct, nil
}

// AuthenticateExisting logs into an existing account. It never registers.
func (c *Client) AuthenticateExisting(
	ctx context.Context,
	address, password string,
) (Account, error) {
	c.Reset()

	acct := Account{Address: address, Password: password}
	token, err := c.exchangeToken(ctx, acct)
	if err != nil {
		c.log.Warn().Err(err).Str("address", address).Msg("authenticating account")
		return Account{}, fmt.Errorf("authenticating %s: %w", address, err)
	}

	c.install(&Session{Account: acct, Token: token, Domain: domainOf(address)})
	return acct, nil
}

// exchangeToken performs POST /token for acct. A 401 here means bad
// credentials.
func (c *Client) exchangeToken(ctx context.Context, acct Account) (string, error) {
	var tok tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/token",
		body:   credentials{Address: acct.Address, Password: acct.Password},
	}, &tok, nil)
	if err != nil {
		return "", err
	}
	if tok.Token == "" {
		return "", ErrEmptyToken
	}
	return tok.Token, nil
}

// Me returns the provider's view of the authenticated account.
func (c *Client) Me(ctx context.Context) (AccountInfo, error) {
	sess, ok := c.Session()
	if !ok {
		return AccountInfo{}, ErrUnauthenticated
	}

	var info AccountInfo
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/me",
		token:  sess.Token,
	}, &info, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("fetching account info")
		return AccountInfo{}, fmt.Errorf("fetching account info: %w", err)
	}
	return info, nil
}

// Reset drops the active session. It is safe to call repeatedly.
func (c *Client) Reset() {
	c.install(nil)
}

func (c *Client) install(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// Session returns a copy of the active session.
func (c *Client) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Authenticated reports whether a session is active.
func (c *Client) Authenticated() bool {
	_, ok := c.Session()
	return ok
}

// Account returns the account of the active session.
func (c *Client) Account() (Account, bool) {
	s, ok := c.Session()
	return s.Account, ok
}

// Token returns the bearer token of the active session, or "".
func (c *Client) Token() string {
	s, _ := c.Session()
	return s.Token
}

// Password returns the password of the active session, or "".
func (c *Client) Password() string {
	s, _ := c.Session()
	return s.Account.Password
}

// AuthHeader returns the Authorization header value sent with
// authenticated requests, or "" when there is no session.
func (c *Client) AuthHeader() string {
	s, ok := c.Session()
	if !ok {
		return ""
	}
	return bearer(s.Token)
}

func (c *Client) requireSession() (Session, error) {
	s, ok := c.Session()
	if !ok {
		return Session{}, ErrUnauthenticated
	}
	return s, nil
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 {
		return address[i+1:]
	}
	return ""
}

const lowercase = "abcdefghijklmnopqrstuvwxyz"

// randomLowercase returns n random letters a-z.
func randomLowercase(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(lowercase[rand.IntN(len(lowercase))])
	}
	return b.String()
}
