package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/user"
)

type authApi struct {
	conf     *core.Config
	svc      user.Service
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, auth echo.MiddlewareFunc, svc user.Service, conf *core.Config, validate *validator.Validate) {
	api := authApi{
		conf:     conf,
		svc:      svc,
		validate: validate,
	}

	// un-authed endpoints
	// TODO: rate limit `/sendotp`
	g.GET("", api.home)
	g.POST("/sendotp", api.sendOTP)
	g.POST("/register", api.register)
	g.POST("/login", api.login)

	// authed endpoints
	ag := g.Group("", auth)
	ag.GET("/checklogin", api.checkLogin)
	ag.GET("/getuser", api.getUser)
	ag.GET("/logout", api.logout)
}

// Handlers

func (api *authApi) home(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, "Auth route home", nil)
}

func (api *authApi) sendOTP(ctx echo.Context) error {
	var data user.OTPRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OTPRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.IssueOTP(ctx.Request().Context(), data.Email); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "OTP sent successfully", nil)
}

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}

	authToken, refreshToken, err := setTokenCookies(ctx, api.conf, usr)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Registered successfully", echo.Map{
		"user":         usr,
		"authToken":    authToken,
		"refreshToken": refreshToken,
	})
}

func (api *authApi) login(ctx echo.Context) error {
	var data user.LoginUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}

	authToken, refreshToken, err := setTokenCookies(ctx, api.conf, usr)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Logged in successfully", echo.Map{
		"user":         usr,
		"authToken":    authToken,
		"refreshToken": refreshToken,
	})
}

func (api *authApi) checkLogin(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "user is logged in", echo.Map{"userId": usr.ID})
}

func (api *authApi) getUser(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "User found", usr)
}

func (api *authApi) logout(ctx echo.Context) error {
	clearTokenCookies(ctx, api.conf)
	return respond(ctx, http.StatusOK, "Logged out Successfully", nil)
}
