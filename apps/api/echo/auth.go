package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/user"
)

const (
	authTokenCookie    = "authToken"
	refreshTokenCookie = "refreshToken"

	tokenUseAuth    = "auth"
	tokenUseRefresh = "refresh"

	contextUserKey = "user"
)

// Claims represents the authorization claims transmitted via a JWT cookie.
type Claims struct {
	jwt.StandardClaims
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	TokenUse string `json:"token_use,omitempty"`
}

func getUserClaims(conf *core.Config, usr user.User, tokenUse string, delta time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(delta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:    usr.Email,
		Role:     usr.Role,
		TokenUse: tokenUse,
	}
}

// generateToken generates a signed JWT token string representing the user Claims.
func generateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	return ss, errors.Wrap(err, "signing token")
}

func parseToken(conf *core.Config, tokenStr, tokenUse string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return []byte(conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenUse != tokenUse {
		return nil, errors.New("wrong token use")
	}
	return claims, nil
}

func newTokenCookie(conf *core.Config, name, value string, maxAge time.Duration) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if conf.Server.SecureCookies {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   conf.Server.SecureCookies,
		SameSite: sameSite,
	}
}

// setTokenCookies issues both session cookies for usr and returns the raw
// token strings for the response body.
func setTokenCookies(ctx echo.Context, conf *core.Config, usr user.User) (string, string, error) {
	authToken, err := generateToken(conf, getUserClaims(conf, usr, tokenUseAuth, conf.Server.JWTExpirationDelta))
	if err != nil {
		return "", "", err
	}
	refreshToken, err := generateToken(conf, getUserClaims(conf, usr, tokenUseRefresh, conf.Server.JWTRefreshExpirationDelta))
	if err != nil {
		return "", "", err
	}

	ctx.SetCookie(newTokenCookie(conf, authTokenCookie, authToken, conf.Server.JWTExpirationDelta))
	ctx.SetCookie(newTokenCookie(conf, refreshTokenCookie, refreshToken, conf.Server.JWTRefreshExpirationDelta))
	return authToken, refreshToken, nil
}

func clearTokenCookies(ctx echo.Context, conf *core.Config) {
	ctx.SetCookie(newTokenCookie(conf, authTokenCookie, "", -time.Second))
	ctx.SetCookie(newTokenCookie(conf, refreshTokenCookie, "", -time.Second))
}

// authMiddleware is the auth guard for protected endpoints: it resolves the
// caller's account from the signed auth cookie and short-circuits with 401
// otherwise, so handlers never run with an unresolved identity. A valid
// refresh cookie rotates a fresh auth cookie in place of a missing or
// expired one.
func authMiddleware(conf *core.Config, svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := cookieClaims(ctx, conf, authTokenCookie, tokenUseAuth)
			if err != nil {
				claims, err = cookieClaims(ctx, conf, refreshTokenCookie, tokenUseRefresh)
				if err != nil {
					return errUnauthenticated
				}
			}

			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				return errUnauthenticated
			}

			if claims.TokenUse == tokenUseRefresh {
				// rotate the auth cookie off the refresh token
				authToken, err := generateToken(conf, getUserClaims(conf, usr, tokenUseAuth, conf.Server.JWTExpirationDelta))
				if err != nil {
					return err
				}
				ctx.SetCookie(newTokenCookie(conf, authTokenCookie, authToken, conf.Server.JWTExpirationDelta))
			}

			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func cookieClaims(ctx echo.Context, conf *core.Config, cookieName, tokenUse string) (*Claims, error) {
	cookie, err := ctx.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil, errors.New("missing token cookie")
	}
	return parseToken(conf, cookie.Value, tokenUse)
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthenticated
}
