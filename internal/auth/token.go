package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims 本地会话 Token 的声明
type Claims struct {
	StudentID string `json:"studentId"`
	jwt.RegisteredClaims
}

// TokenService 本地会话 Token 服务
// ERP 登录成功后由网关签发，后续 API 与 WebSocket 接入都凭此认证
type TokenService struct {
	secretKey []byte
	expire    time.Duration
}

// NewTokenService 创建 Token 服务
func NewTokenService(secretKey string, expire time.Duration) *TokenService {
	return &TokenService{
		secretKey: []byte(secretKey),
		expire:    expire,
	}
}

// Mint 为指定用户签发 Token
func (s *TokenService) Mint(studentID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		StudentID: studentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "campus-chat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Validate 验证 Token 并返回声明
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.StudentID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
