// auth.go — JWT-аутентификация API архивов.
// Bearer-токен (RS256) проверяется по ключам JWKS и превращается в Principal:
// sub администратора и его scopes dumps:read / dumps:write.
package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/goartstore/dump-module/internal/api/errors"
)

// Scopes API архивов.
const (
	// ScopeRead — листинг и скачивание архивов
	ScopeRead = "dumps:read"
	// ScopeWrite — создание и удаление архивов
	ScopeWrite = "dumps:write"
)

// contextKey — тип ключей контекста пакета.
type contextKey string

const principalKey contextKey = "principal"

// Ошибки разбора заголовка Authorization.
var (
	errNoAuthorization = errors.New("нет заголовка Authorization")
	errNotBearer       = errors.New("схема Authorization не Bearer")
	errEmptyToken      = errors.New("пустой Bearer token")
	errNoSubject       = errors.New("в токене нет sub")
)

// TokenClaims — claims токена администратора. Scopes приходят либо строкой
// "scope" через пробел (OAuth2), либо массивом "scopes".
type TokenClaims struct {
	jwt.RegisteredClaims
	Scope     string   `json:"scope,omitempty"`
	ScopeList []string `json:"scopes,omitempty"`
}

// principal собирает Principal из claims. Повторы scopes убираются.
func (c *TokenClaims) principal() (Principal, error) {
	if c.Subject == "" {
		return Principal{}, errNoSubject
	}
	scopes := append(strings.Fields(c.Scope), c.ScopeList...)
	slices.Sort(scopes)
	return Principal{Subject: c.Subject, Scopes: slices.Compact(scopes)}, nil
}

// Principal — аутентифицированный владелец запроса.
type Principal struct {
	Subject string
	Scopes  []string
}

// HasScope сообщает, выдан ли scope.
func (p Principal) HasScope(scope string) bool {
	return slices.Contains(p.Scopes, scope)
}

// WithPrincipal кладёт Principal в контекст.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext возвращает Principal, положенный JWTAuth.Middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// SubjectFromContext — sub из контекста или "" для анонимного запроса.
func SubjectFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.Subject
}

// JWTAuthConfig — параметры JWKS-клиента и проверки токенов.
type JWTAuthConfig struct {
	JWKSURL string
	// CA для TLS JWKS endpoint (опционально)
	CACertPath      string
	TLSSkipVerify   bool
	ClientTimeout   time.Duration
	RefreshInterval time.Duration
	// Допуск расхождения часов для exp/nbf
	JWTLeeway time.Duration
}

// JWTAuth проверяет Bearer-токены API архивов.
type JWTAuth struct {
	keys   keyfunc.Keyfunc
	parser *jwt.Parser
	logger *slog.Logger
}

// NewJWTAuth создаёт JWTAuth с ключами из JWKS endpoint.
// Недоступный при старте JWKS не ошибка: ключи подтянутся при обновлении.
func NewJWTAuth(authCfg JWTAuthConfig, logger *slog.Logger) (*JWTAuth, error) {
	client, err := jwksHTTPClient(authCfg)
	if err != nil {
		return nil, err
	}

	storage, err := jwkset.NewStorageFromHTTP(authCfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    client,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           authCfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("url", authCfg.JWKSURL),
				slog.String("error", err.Error()),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("JWKS storage %s: %w", authCfg.JWKSURL, err)
	}

	keys, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("keyfunc: %w", err)
	}

	return NewJWTAuthWithKeyfunc(keys, authCfg.JWTLeeway, logger), nil
}

// NewJWTAuthWithKeyfunc создаёт JWTAuth поверх готового набора ключей.
func NewJWTAuthWithKeyfunc(keys keyfunc.Keyfunc, leeway time.Duration, logger *slog.Logger) *JWTAuth {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	)
	return &JWTAuth{
		keys:   keys,
		parser: parser,
		logger: logger.With(slog.String("component", "jwt_auth")),
	}
}

// jwksHTTPClient — клиент JWKS с таймаутом и опциональным CA.
func jwksHTTPClient(authCfg JWTAuthConfig) (*http.Client, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: authCfg.TLSSkipVerify, //nolint:gosec // DUMP_TLS_SKIP_VERIFY
	}

	if authCfg.CACertPath != "" {
		pem, err := os.ReadFile(authCfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("CA-сертификат JWKS: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA-сертификат %s не содержит PEM-блоков", authCfg.CACertPath)
		}
		tlsConfig.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return &http.Client{Timeout: authCfg.ClientTimeout, Transport: transport}, nil
}

// authenticate проверяет токен запроса и возвращает его владельца.
func (j *JWTAuth) authenticate(r *http.Request) (Principal, error) {
	raw, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return Principal{}, err
	}

	claims := &TokenClaims{}
	if _, err := j.parser.ParseWithClaims(raw, claims, j.keys.KeyfuncCtx(r.Context())); err != nil {
		return Principal{}, err
	}
	return claims.principal()
}

// bearerToken извлекает токен из значения заголовка Authorization.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoAuthorization
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errNotBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

// Middleware пропускает только запросы с валидным токеном и кладёт
// Principal в контекст. Причина отказа уходит в debug-лог, клиенту — 401.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := j.authenticate(r)
			if err != nil {
				j.logger.Debug("Запрос без валидного токена",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("error", err.Error()),
				)
				apierrors.Unauthorized(w, "Требуется валидный Bearer-токен")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireScope отвечает 403, если у Principal нет scope.
// Ставится после JWTAuth.Middleware.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := PrincipalFromContext(r.Context()); !ok || !p.HasScope(scope) {
				apierrors.Forbidden(w, "Недостаточно прав: требуется scope "+scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
