// Package claims defines the access token claim contract and its parsing rules.
package claims

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	"go.uber.org/zap"
)

// MaxMemberships bounds the team_memberships claim. Accounts belonging to
// more teams than this must switch teams through the API rather than carry
// the full list in every token.
const MaxMemberships = 64

var (
	ErrInvalidToken = errors.New("invalid_token")
	ErrExpiredToken = errors.New("expired_token")
)

// Membership is one entry of the team_memberships claim.
type Membership struct {
	TeamID        string `json:"team_id"`
	TeamSubdomain string `json:"team_subdomain"`
	TeamRole      string `json:"team_role"`
	MemberType    string `json:"member_type"`
}

// Access is the typed claim set carried by a bearer token.
type Access struct {
	jwt.RegisteredClaims

	Email         string       `json:"email"`
	IsGlobalAdmin bool         `json:"is_global_admin"`
	TeamID        string       `json:"team_id,omitempty"`
	TeamRole      string       `json:"team_role,omitempty"`
	MemberType    string       `json:"member_type,omitempty"`
	Memberships   []Membership `json:"team_memberships,omitempty"`
}

// UserID returns the subject as a snowflake id, or 0 when absent/garbled.
func (a *Access) UserID() snowflake.ID {
	id, err := snowflake.ParseString(a.Subject)
	if err != nil {
		return 0
	}
	return id
}

// ValidMemberships filters the membership list down to well-formed entries.
// An entry with an unparseable team id or an unknown role is skipped and
// logged at debug; it is never defaulted into something permissive.
func (a *Access) ValidMemberships(log *zap.Logger) []Membership {
	out := make([]Membership, 0, len(a.Memberships))
	for _, m := range a.Memberships {
		if _, err := snowflake.ParseString(m.TeamID); err != nil {
			log.Debug("skipping membership claim with bad team id",
				zap.String("team_id", m.TeamID))
			continue
		}
		if !teamdomain.ValidRole(m.TeamRole) {
			log.Debug("skipping membership claim with unknown role",
				zap.String("team_id", m.TeamID),
				zap.String("role", m.TeamRole))
			continue
		}
		out = append(out, m)
	}
	return out
}

// Issue signs an access token for the given claim set.
func Issue(access Access, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	if len(access.Memberships) > MaxMemberships {
		access.Memberships = access.Memberships[:MaxMemberships]
	}
	access.IssuedAt = jwt.NewNumericDate(now)
	access.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &access)
	return token.SignedString(secret)
}

// Parse verifies the signature and expiry of raw and returns the claim set.
func Parse(raw string, secret []byte) (*Access, error) {
	var access Access
	token, err := jwt.ParseWithClaims(raw, &access, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return &access, nil
}
