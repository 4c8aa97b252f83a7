package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/plantshop/internal/model"
)

// Issuer はトークンのiss クレームに設定する値。
const Issuer = "plantshop"

// MinSecretLength はHS256署名鍵として受け付ける最小バイト数。
const MinSecretLength = 32

// ErrInvalidToken はトークンの検証に失敗したことを表す。
// 署名不一致・アルゴリズム不一致・形式不正・発行者不一致・期限切れ・subject欠落を区別しない。
var ErrInvalidToken = errors.New("invalid token")

// Claims はセッショントークンのクレーム。
// Roleは参考情報であり、認可判断には必ずストア上のロールを使う。
type Claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenConfig はTokenServiceの設定。
type TokenConfig struct {
	Secret      string
	SessionTTL  time.Duration
	RememberTTL time.Duration
	// Now は現在時刻を返す。nilの場合はtime.Nowを使う。
	Now func() time.Time
}

// IssuedToken は発行済みトークンとそのメタデータ。
type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// TokenService はHS256署名のセッショントークンを発行・検証する。
// 状態を持たないため並行利用できる。
type TokenService struct {
	secret      []byte
	sessionTTL  time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// NewTokenService はTokenServiceを生成する。
// 署名鍵が空または短すぎる場合はmodel.ErrConfigurationをラップしたエラーを返し、
// 署名なしトークンを発行するモードには縮退しない。
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: session secret must be at least %d bytes", model.ErrConfiguration, MinSecretLength)
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.RememberTTL < cfg.SessionTTL {
		cfg.RememberTTL = 30 * 24 * time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		secret:      []byte(cfg.Secret),
		sessionTTL:  cfg.SessionTTL,
		rememberTTL: cfg.RememberTTL,
		now:         now,
	}, nil
}

// TTL はrememberMeに応じたトークン有効期間を返す。
func (s *TokenService) TTL(rememberMe bool) time.Duration {
	if rememberMe {
		return s.rememberTTL
	}
	return s.sessionTTL
}

// Issue はユーザーのセッショントークンを発行する。
func (s *TokenService) Issue(user *model.User, rememberMe bool) (*IssuedToken, error) {
	if user == nil || user.ID == "" {
		return nil, errors.New("cannot issue token without user id")
	}

	now := s.now()
	expiresAt := now.Add(s.TTL(rememberMe))
	jti := uuid.NewString()

	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   user.ID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify はトークンを検証しクレームを返す。
// 検証に失敗した場合は理由に関わらずErrInvalidTokenを返す。
func (s *TokenService) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
