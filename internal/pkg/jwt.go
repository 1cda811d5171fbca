package pkg

import (
	"errors"
	"strconv"
	"time"

	"Vid_Community/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrTokenWrongType    = errors.New("token has wrong type")
	ErrTokenParseFailure = errors.New("token parse failure")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type Claims struct {
	UserID    uint64 `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type Pair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh,omitempty"`
}

// TokenIssuer 签发/解析 access 与 refresh，两类 token 使用不同密钥
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

func (i *TokenIssuer) GeneratePair(userID uint64) (*Pair, error) {
	access, err := i.GenerateAccess(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := i.sign(userID, TokenTypeRefresh, i.refreshTTL, i.refreshSecret)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *TokenIssuer) GenerateAccess(userID uint64) (string, error) {
	return i.sign(userID, TokenTypeAccess, i.accessTTL, i.accessSecret)
}

func (i *TokenIssuer) sign(userID uint64, typ string, ttl time.Duration, secret []byte) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    userID,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(secret)
}

// ParseAccess 解析 access
func (i *TokenIssuer) ParseAccess(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, TokenTypeAccess, i.accessSecret)
}

// ParseRefresh 解析 refresh
func (i *TokenIssuer) ParseRefresh(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, TokenTypeRefresh, i.refreshSecret)
}

func (i *TokenIssuer) parse(tokenStr, typ string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenInvalid
		default:
			return nil, ErrTokenParseFailure
		}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenParseFailure
	}
	if claims.TokenType != typ {
		return nil, ErrTokenWrongType
	}
	return claims, nil
}

// Remaining token 剩余有效期，用于黑名单 TTL
func (i *TokenIssuer) Remaining(c *Claims) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Sub(i.now())
	if d < 0 {
		return 0
	}
	return d
}
