package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/classroom"
	"github.com/mastersgang/backend/core/otp"
	"github.com/mastersgang/backend/core/user"
	emailsvc "github.com/mastersgang/backend/services/email"
	inmemdb "github.com/mastersgang/backend/storage/database/inmem"
)

// nopLogger discards everything; handler tests assert on responses, not logs.
type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestConfig() *core.Config {
	return &core.Config{
		Debug:     true,
		TestMode:  true,
		AppName:   "MastersGang",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			RequireOwnerApproval:      true,
		},
		OTP: core.OTPConfig{TTL: 5 * time.Minute, SweepInterval: time.Minute},
	}
}

type testEnv struct {
	app      Server
	conf     *core.Config
	db       *inmemdb.DB
	usrRepo  user.Repository
	usrSvc   user.Service
	clsSvc   classroom.Service
	mailSvc  *emailsvc.DummyService
	issuer   *otp.Issuer
	codeRepo otp.Repository
}

func newTestEnv() *testEnv {
	conf := newTestConfig()
	db := inmemdb.Open()
	mailSvc := emailsvc.NewDummyService()

	usrRepo := inmemdb.NewUserRepository(db)
	codeRepo := inmemdb.NewCodeRepository(db)
	issuer := otp.NewIssuer(conf, codeRepo, mailSvc)
	usrSvc := user.NewService(usrRepo, issuer)
	clsSvc := classroom.NewService(conf, inmemdb.NewClassroomRepository(db), usrRepo, mailSvc)

	app := NewServer(&Options{
		Conf:           conf,
		Logger:         nopLogger{},
		UserSvc:        usrSvc,
		ClassroomSvc:   clsSvc,
		DisableReqLogs: true,
	})

	return &testEnv{
		app:      app,
		conf:     conf,
		db:       db,
		usrRepo:  usrRepo,
		usrSvc:   usrSvc,
		clsSvc:   clsSvc,
		mailSvc:  mailSvc,
		issuer:   issuer,
		codeRepo: codeRepo,
	}
}

func (env *testEnv) createUser(t *testing.T, name, email, role string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, usr.SetPassword("s3cret!"))
	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

// issueCode requests a registration code for email and returns it.
func (env *testEnv) issueCode(t *testing.T, email string) string {
	t.Helper()
	code, err := env.issuer.Issue(context.Background(), email)
	require.NoError(t, err)
	return code.Code
}

func (env *testEnv) authCookie(t *testing.T, usr user.User) *http.Cookie {
	t.Helper()
	token, err := generateToken(env.conf, getUserClaims(env.conf, usr, tokenUseAuth, env.conf.Server.JWTExpirationDelta))
	require.NoError(t, err)
	return newTokenCookie(env.conf, authTokenCookie, token, env.conf.Server.JWTExpirationDelta)
}

func (env *testEnv) refreshCookie(t *testing.T, usr user.User) *http.Cookie {
	t.Helper()
	token, err := generateToken(env.conf, getUserClaims(env.conf, usr, tokenUseRefresh, env.conf.Server.JWTRefreshExpirationDelta))
	require.NoError(t, err)
	return newTokenCookie(env.conf, refreshTokenCookie, token, env.conf.Server.JWTRefreshExpirationDelta)
}

// do runs a request through the full middleware chain and decodes the envelope.
func (env *testEnv) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)

	var resp Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
