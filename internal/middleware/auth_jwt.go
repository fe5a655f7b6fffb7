package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

var (
	errTokenExpired = errors.New("token expired")
	errBadSubject   = errors.New("invalid sub")
	errBadRole      = errors.New("invalid role")
	errNoVersion    = errors.New("missing tv")
)

// 数値でも "42" のような文字列でも受ける
type looseInt int64

func (n *looseInt) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseInt(strings.Trim(string(b), `"`), 10, 64)
	if err != nil {
		return err
	}
	*n = looseInt(v)
	return nil
}

// accessClaims は認証サービスが発行するアクセストークンの中身
type accessClaims struct {
	Subject   looseInt         `json:"sub"`
	Role      model.Role       `json:"role"`
	Version   *looseInt        `json:"tv"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
}

func (c *accessClaims) Valid() error {
	if c.ExpiresAt != nil && !time.Now().Before(c.ExpiresAt.Time) {
		return errTokenExpired
	}
	if c.Subject <= 0 {
		return errBadSubject
	}
	if c.Role != model.RoleUser && c.Role != model.RoleAdmin {
		return errBadRole
	}
	if c.Version == nil || *c.Version < 0 {
		return errNoVersion
	}
	return nil
}

// bearerToken は "Bearer xxx" からxxxを取り出す。スキームの大小文字は問わない
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthJWT はHS256のアクセストークンを検証して、user_id/role/tvをcontextに入れる。
// 発行は認証サービス側
func AuthJWT(secret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorized(c)
			}

			var claims accessClaims
			token, err := parser.ParseWithClaims(raw, &claims, keyFunc)
			if err != nil || !token.Valid {
				return unauthorized(c)
			}

			c.Set(CtxUserIDKey, int64(claims.Subject))
			c.Set(CtxUserRoleKey, string(claims.Role))
			c.Set(CtxTokenVersionKey, int(*claims.Version))
			return next(c)
		}
	}
}

// PrincipalFromContext はAuthJWTが入れた値からPrincipalを作る。
func PrincipalFromContext(c echo.Context) (model.Principal, bool) {
	userID, ok := c.Get(CtxUserIDKey).(int64)
	if !ok || userID <= 0 {
		return model.Principal{}, false
	}
	role, ok := c.Get(CtxUserRoleKey).(string)
	if !ok || role == "" {
		return model.Principal{}, false
	}
	return model.Principal{UserID: userID, Role: model.Role(role)}, true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: "unauthorized"})
}
