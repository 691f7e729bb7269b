package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL 会话令牌有效期
const DefaultTTL = 24 * time.Hour

var ErrEmptySecret = errors.New("secret key cannot be empty")

// AuthToken 会话令牌签发与校验
type AuthToken struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthToken 创建令牌工具，密钥为空时返回错误
func NewAuthToken(secretKey string, ttl time.Duration) (*AuthToken, error) {
	if secretKey == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AuthToken{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// GenerateToken 为客户端签发令牌，返回令牌与过期时间
func (at *AuthToken) GenerateToken(clientID string) (string, time.Time, error) {
	issuedAt := at.now()
	expireTime := issuedAt.Add(at.ttl)

	claims := jwt.MapClaims{
		"client_id": clientID,
		"exp":       expireTime.Unix(),
		"iat":       issuedAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expireTime, nil
}

// VerifyToken 校验令牌并返回客户端 ID
func (at *AuthToken) VerifyToken(tokenString string) (string, error) {
	if at == nil {
		return "", errors.New("AuthToken instance is nil")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return at.secretKey, nil
	}, jwt.WithTimeFunc(at.now))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	clientID, ok := claims["client_id"].(string)
	if !ok || clientID == "" {
		return "", errors.New("invalid client_id in claims")
	}
	return clientID, nil
}
