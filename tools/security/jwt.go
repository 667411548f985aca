package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	errs "github.com/streamverse/realtime-gateway/tools/errs"
)

// Options 控制签名与TTL等参数。
type Options struct {
	Secret []byte        // HMAC 密钥（生产用ENV/KMS）
	Alg    string        // HS256/HS384/HS512（默认 HS256）
	TTL    time.Duration // 令牌有效期（默认 2h）
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 2 * time.Hour}
}

// Identity 验签通过后从令牌提取的身份。网关只关心 user_id。
type Identity struct {
	UserID string
}

// Claims 与平台身份服务签发的令牌结构保持一致。
type Claims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwtlib.RegisteredClaims
}

// Generate 签发令牌。网关本身不签发，保留给测试和运维工具。
func Generate(opts Options, userID string, roles []string) (string, time.Time, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if opts.TTL == 0 {
		opts.TTL = 2 * time.Hour
	}
	now := time.Now()
	exp := now.Add(opts.TTL)

	claims := Claims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(exp),
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
		},
	}

	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify 校验签名与有效期并提取身份。无副作用；失败返回 errs.ErrAuth* 之一。
func Verify(opts Options, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errs.ErrAuthMalformed
	}

	claims := &Claims{}
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		// 仅允许 HMAC 家族，防止 alg 混淆
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenMalformed):
			return nil, errs.ErrAuthMalformed.WithDetail(err.Error())
		case errors.Is(err, jwtlib.ErrTokenExpired), errors.Is(err, jwtlib.ErrTokenNotValidYet):
			return nil, errs.ErrAuthExpired.WithDetail(err.Error())
		default:
			return nil, errs.ErrAuthInvalid.WithDetail(err.Error())
		}
	}
	if !parsed.Valid {
		return nil, errs.ErrAuthInvalid
	}
	if claims.UserID == "" {
		// sub 兜底：部分签发方只填 RegisteredClaims
		if claims.Subject == "" {
			return nil, errs.ErrAuthMalformed.WithDetail("no user_id claim")
		}
		return &Identity{UserID: claims.Subject}, nil
	}
	return &Identity{UserID: claims.UserID}, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
