package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultRefreshMinRemaining is the lifetime a token must still have for
// Refresh to accept it.
const DefaultRefreshMinRemaining = 5 * time.Minute

// TokenAuthority issues tokens for authenticated principals and refreshes
// still-valid tokens.
//
// Refresh carries the presented token's subject and roles verbatim: roles are
// bound at issuance and never re-derived, so a refresh cannot add privileges.
// Role removals in the store also do not shrink a refreshed token; eligibility
// (active, unlocked) is still re-checked on every request by the Authenticator.
//
// Logout has no server-side effect. There is no revocation list, so a token
// stays valid until its exp claim.
type TokenAuthority struct {
	codec               *TokenCodec
	clock               clock.Clock
	refreshMinRemaining time.Duration
}

// NewTokenAuthority creates a TokenAuthority.
func NewTokenAuthority(codec *TokenCodec, clk clock.Clock, refreshMinRemaining time.Duration) *TokenAuthority {
	if clk == nil {
		clk = clock.New()
	}
	if refreshMinRemaining < 0 {
		refreshMinRemaining = 0
	}
	return &TokenAuthority{
		codec:               codec,
		clock:               clk,
		refreshMinRemaining: refreshMinRemaining,
	}
}

// Now returns the authority's current time.
func (a *TokenAuthority) Now() time.Time {
	return a.clock.Now()
}

// TTL returns the lifetime of issued tokens.
func (a *TokenAuthority) TTL() time.Duration {
	return a.codec.TTL()
}

// RefreshMinRemaining returns the refresh window threshold.
func (a *TokenAuthority) RefreshMinRemaining() time.Duration {
	return a.refreshMinRemaining
}

// IssueFor issues a token for a validated principal.
func (a *TokenAuthority) IssueFor(p *Principal) (*Token, error) {
	if p == nil {
		return nil, errors.New("principal is required")
	}
	return a.codec.Issue(p.Username, p.Roles, a.clock.Now())
}

// Refresh reissues a token with the same subject and roles and a fresh
// iat/exp pair. The token must verify, be unexpired at now, and have strictly
// more than the refresh threshold left.
func (a *TokenAuthority) Refresh(tokenString string, now time.Time) (*Token, error) {
	return a.refresh(tokenString, "", now)
}

// RefreshAs is Refresh with an additional check that the token's subject is
// the username the caller is acting as.
func (a *TokenAuthority) RefreshAs(subject, tokenString string, now time.Time) (*Token, error) {
	if subject == "" {
		return nil, newError(KindSubjectMismatch, errors.New("no acting subject"))
	}
	return a.refresh(tokenString, subject, now)
}

func (a *TokenAuthority) refresh(tokenString, subject string, now time.Time) (*Token, error) {
	claims, err := a.codec.ParseAndVerify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Expired(now) {
		return nil, ErrExpired
	}
	if remaining := claims.Remaining(now); remaining <= a.refreshMinRemaining {
		return nil, newError(KindRefreshWindow, fmt.Errorf("%s left, need more than %s", remaining, a.refreshMinRemaining))
	}
	if subject != "" && claims.Subject != subject {
		return nil, ErrSubjectMismatch
	}
	return a.codec.Issue(claims.Subject, claims.Roles, now)
}

// Logout is an explicit caller signal with no enforceable server effect.
func (a *TokenAuthority) Logout(string) {}
