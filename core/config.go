package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Port                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		SecureCookies             bool
		// RequireOwnerApproval restricts join-request approval to the classroom owner.
		RequireOwnerApproval bool
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	OTPConfig struct {
		// TTL applies to registration verification codes only.
		TTL           time.Duration
		SweepInterval time.Duration
		// JoinRequestTTL is intentionally distinct from TTL; 0 means join codes
		// never expire and live until consumed.
		JoinRequestTTL time.Duration
	}

	Config struct {
		Debug           bool
		TestMode        bool
		Env             string
		Build           string
		AppName         string
		SecretKey       string
		FrontendBaseURL string
		DefaultFromName string
		DefaultFrom     string
		SendgridApiKey  string
		RollbarToken    string
		Server          ServerConfig
		Database        DatabaseConfig
		OTP             OTPConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFrom}
}

func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "MastersGang")
	conf.SetDefault("secretKey", "w#05e)bo&!2+5q1$u%8^sy5-2p-e5vp5a&zh80_puykf3m$x4(7r")
	conf.SetDefault("frontendBaseUrl", "http://localhost:3000")
	conf.SetDefault("defaultFromName", "Team MastersGang")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("server.host", "")
	conf.SetDefault("server.port", "8000")
	conf.SetDefault("server.jwtExpirationDelta", 24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 10*24*time.Hour)
	conf.SetDefault("server.secureCookies", false)
	conf.SetDefault("server.requireOwnerApproval", true)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "mastersgang")
	conf.SetDefault("database.user", "mastersgang")
	conf.SetDefault("database.password", "mastersgang")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.disableTls", true)

	conf.SetDefault("otp.ttl", 5*time.Minute)
	conf.SetDefault("otp.sweepInterval", time.Minute)
	conf.SetDefault("otp.joinRequestTtl", time.Duration(0)) // none: join codes live until consumed

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	case "QA", "PROD":
		conf.SetDefault("debug", false)
		conf.SetDefault("server.secureCookies", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:           conf.GetBool("debug"),
		TestMode:        conf.GetBool("testMode"),
		Env:             env,
		Build:           conf.GetString("build"),
		AppName:         conf.GetString("appName"),
		SecretKey:       conf.GetString("secretKey"),
		FrontendBaseURL: conf.GetString("frontendBaseUrl"),
		DefaultFromName: conf.GetString("defaultFromName"),
		DefaultFrom:     conf.GetString("defaultFromEmail"),
		SendgridApiKey:  conf.GetString("sendgridApiKey"),
		RollbarToken:    conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Port:                      conf.GetString("server.port"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			SecureCookies:             conf.GetBool("server.secureCookies"),
			RequireOwnerApproval:      conf.GetBool("server.requireOwnerApproval"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			DisableTLS:    conf.GetBool("database.disableTls"),
		},
		OTP: OTPConfig{
			TTL:            conf.GetDuration("otp.ttl"),
			SweepInterval:  conf.GetDuration("otp.sweepInterval"),
			JoinRequestTTL: conf.GetDuration("otp.joinRequestTtl"),
		},
	}
}
