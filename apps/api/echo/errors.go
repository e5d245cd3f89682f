package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/classroom"
	"github.com/mastersgang/backend/core/otp"
	"github.com/mastersgang/backend/core/user"
)

var (
	errUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that converts
// our error taxonomy into the uniform response envelope.
// signalShutdown is called to gracefully shut the server down whenever a
// core shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string
		var data interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = "invalid input"
			data = fldErrs
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				data = fldErrs
				if message == "" {
					message = "invalid input"
				}
			}
		default:
			switch cause := errors.Cause(err); cause {
			case user.ErrInvalidCredentials, otp.ErrInvalidCode, otp.ErrCodeExpired,
				classroom.ErrInvalidOTP, classroom.ErrOwnerEmailMissing:
				code = http.StatusBadRequest
				message = cause.Error()
			case classroom.ErrNotFound, user.ErrNotFound:
				code = http.StatusNotFound
				message = cause.Error()
			case classroom.ErrNotOwner:
				code = http.StatusForbidden
				message = cause.Error()
			case core.ErrMailNotSent:
				code = http.StatusInternalServerError
				message = "failed to send OTP email"
				logger.Error(message, err)
			default: // any other error is a server error
				code = http.StatusInternalServerError
				message = http.StatusText(code)

				var usr user.User
				if ctxUsr, uErr := getContextUser(ctx); uErr == nil {
					usr = ctxUsr
				}
				logger.Error(message, errors.Wrap(err, message), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = respond(ctx, code, message, data)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
