package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token 类型
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims 自定义JWT Claims
type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair 登录后下发的一对令牌
type TokenPair struct {
	Access          string    `json:"access"`
	Refresh         string    `json:"refresh"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
}

// TokenIssuer 令牌签发与校验
type TokenIssuer struct {
	secret        []byte
	accessExpire  time.Duration
	refreshExpire time.Duration
}

func NewTokenIssuer(secret string, accessHours, refreshHours int64) *TokenIssuer {
	return &TokenIssuer{
		secret:        []byte(secret),
		accessExpire:  time.Duration(accessHours) * time.Hour,
		refreshExpire: time.Duration(refreshHours) * time.Hour,
	}
}

// Issue 生成 access + refresh 令牌
func (i *TokenIssuer) Issue(userID string) (*TokenPair, error) {
	now := time.Now()
	access, accessExp, err := i.sign(userID, TokenAccess, now, i.accessExpire)
	if err != nil {
		return nil, err
	}
	refresh, _, err := i.sign(userID, TokenRefresh, now, i.refreshExpire)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh, AccessExpiresAt: accessExp}, nil
}

func (i *TokenIssuer) sign(userID, tokenType string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expireTime := now.Add(ttl)
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expireTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "tiered-social",
		},
	}

	tokenClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := tokenClaims.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expireTime, nil
}

// Parse 验证JWT Token，并要求类型匹配
func (i *TokenIssuer) Parse(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.TokenType != wantType {
		return nil, errors.New("unexpected token type")
	}
	return claims, nil
}
