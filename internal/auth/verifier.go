package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

// ErrUnauthenticated is returned for any credential that fails verification:
// bad signature, expired, malformed, or referencing a deleted account. There
// is no partial acceptance or guest downgrade.
var ErrUnauthenticated = errors.New("auth: invalid credential")

// UserLookup resolves persisted account ids. Satisfied by store.DataStore.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Verifier decodes and validates session credentials issued by the identity
// collaborator. It never issues persisted-account credentials itself.
type Verifier struct {
	secret []byte
	users  UserLookup
}

// NewVerifier creates a Verifier with the given HMAC secret.
func NewVerifier(secret string, users UserLookup) *Verifier {
	return &Verifier{secret: []byte(secret), users: users}
}

// Verify validates the credential and resolves it to a Principal.
//
// A credential with the guest flag set yields a guest Principal built
// directly from the embedded claims; no backing record is required. Otherwise
// the subject must resolve to an existing user row.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.Principal, error) {
	if tokenString == "" {
		return nil, ErrUnauthenticated
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthenticated
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrUnauthenticated
	}
	name, _ := claims["name"].(string)
	avatar, _ := claims["avatar"].(string)

	if guest, _ := claims["guest"].(bool); guest {
		if name == "" {
			name = "anon_guest"
		}
		return &models.Principal{
			ID:     sub,
			Name:   name,
			Avatar: avatar,
			Guest:  true,
		}, nil
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	user, err := v.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Credential references a deleted account
		return nil, ErrUnauthenticated
	}

	return &models.Principal{
		ID:     user.ID.String(),
		Name:   user.Username,
		Avatar: user.Avatar,
		Guest:  false,
	}, nil
}

// IssueGuest mints a short-lived guest credential. Persisted-account
// credentials come from the external identity collaborator.
func (v *Verifier) IssueGuest(name string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   "guest_" + uuid.NewString(),
		"name":  name,
		"guest": true,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
