package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims identify an authenticated user. Subject carries the username.
type Claims struct {
	UserID int64  `json:"uid"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService wraps JWT creation and validation.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue creates a signed access and refresh token for the user.
func (t *TokenService) Issue(userID int64, username string) (*TokenPair, error) {
	now := t.now()
	pair := &TokenPair{
		AccessExpiresAt:  now.Add(t.accessTTL),
		RefreshExpiresAt: now.Add(t.refreshTTL),
	}

	var err error
	if pair.AccessToken, err = t.sign(userID, username, TypeAccess, now, pair.AccessExpiresAt); err != nil {
		return nil, err
	}
	if pair.RefreshToken, err = t.sign(userID, username, TypeRefresh, now, pair.RefreshExpiresAt); err != nil {
		return nil, err
	}
	return pair, nil
}

func (t *TokenService) sign(userID int64, username, typ string, now, expires time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        typ[:1] + strconv.FormatInt(now.UnixNano(), 36),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse validates a token of the wanted type and returns its claims.
func (t *TokenService) Parse(tokenStr, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	if claims.Type != wantType {
		return nil, errors.Join(ErrInvalidToken, fmt.Errorf("%w: %q", ErrWrongTokenType, claims.Type))
	}
	return claims, nil
}
