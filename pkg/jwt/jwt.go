package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// Manager JWT管理器
// 设计说明：
// 1. 使用HS256对称签名，签名密钥来自配置（jwt.secret）
// 2. 目录服务没有用户体系，Token只标识调用方（Subject），由运维通过cmd/token签发
// 3. 校验签名算法、过期时间和签发者（Issuer）
type Manager struct {
	secret      []byte
	issuer      string
	tokenExpire time.Duration
}

// NewManager 创建JWT管理器
func NewManager(secret, issuer string, tokenExpire time.Duration) *Manager {
	return &Manager{
		secret:      []byte(secret),
		issuer:      issuer,
		tokenExpire: tokenExpire,
	}
}

// Claims 自定义声明
type Claims struct {
	jwt.RegisteredClaims
}

// Token 签发结果
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// GenerateToken 为调用方签发Token
func (m *Manager) GenerateToken(subject string) (*Token, error) {
	if subject == "" {
		return nil, apperrors.ErrInvalidParams.WithMessage("subject不能为空")
	}

	now := time.Now()
	expiresAt := now.Add(m.tokenExpire)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   subject,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, apperrors.Wrap(err, "生成Token失败")
	}

	return &Token{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
	}, nil
}

// ParseToken 解析并校验Token
// 过期返回ErrTokenExpired，其他任何问题返回ErrInvalidToken
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 防止alg=none等算法替换攻击
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))

	if err != nil {
		// v5的错误是包装过的，需要用errors.Is判断
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, apperrors.ErrInvalidToken
}
