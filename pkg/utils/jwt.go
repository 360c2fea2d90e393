package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"modular-shop-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken wraps every reason a bearer token is rejected.
var ErrInvalidToken = errors.New("invalid token")

// JWTService JWT服务：签发与验证访问令牌
type JWTService struct {
	secretKey []byte
	issuer    string
	audience  string
	lifetime  time.Duration
	now       func() time.Time
}

// NewJWTService 创建JWT服务
func NewJWTService(secretKey, issuer, audience string, lifetime time.Duration) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		audience:  audience,
		lifetime:  lifetime,
		now:       time.Now,
	}
}

// WithClock 替换时间来源（测试用）
func (j *JWTService) WithClock(now func() time.Time) *JWTService {
	j.now = now
	return j
}

// Lifetime 返回令牌有效期
func (j *JWTService) Lifetime() time.Duration {
	return j.lifetime
}

// IssueToken 为用户签发访问令牌
// groups 原样写入 claims，调用方负责传入登录时刻的成员关系
func (j *JWTService) IssueToken(user *models.User, groups []string) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: nil user")
	}
	if groups == nil {
		groups = []string{}
	}

	now := j.now()
	expiry := now.Add(j.lifetime)

	claims := &models.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Groups:   groups,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	return tokenString, expiry, nil
}

// ValidateToken 验证令牌：签名、签发者、受众与过期时间
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}

	return claims, nil
}

// ExtractUserFromToken 从令牌中提取已认证用户
func (j *JWTService) ExtractUserFromToken(tokenString string) (*models.AuthUser, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	return &models.AuthUser{
		ID:       claims.UserID,
		Username: claims.Username,
		Groups:   claims.Groups,
	}, nil
}
