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

type Config struct {
	Env      string
	AppName  string
	Build    string
	Debug    bool
	TestMode bool

	SecretKey       string
	FrontendBaseURL string
	ServerAddress   string

	DatabaseURL string

	DefaultFromEmail mail.Address
	SendgridApiKey   string
	RollbarToken     string

	// DraftDir is the staging area for files uploaded mid-wizard.
	DraftDir string

	JWTExpirationDelta        time.Duration
	JWTRefreshExpirationDelta time.Duration
	PasswordResetTimeoutDelta time.Duration
}

var Conf *Config

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Eventyay CfP")
	v.SetDefault("secretKey", "w3lc0me-t0-the-c4ll-f0r-p4pers!-ch4nge-me-in-pr0d")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("serverAddress", ":8080")
	v.SetDefault("databaseURL", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("draftDir", filepath.Join(os.TempDir(), "cfp-drafts"))
	v.SetDefault("jwtExpirationDelta", 3*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*3*24*time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Env:                       env,
		AppName:                   v.GetString("appName"),
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  testMode,
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		ServerAddress:             v.GetString("serverAddress"),
		DatabaseURL:               v.GetString("databaseURL"),
		DefaultFromEmail:          mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		DraftDir:                  v.GetString("draftDir"),
		JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
		JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
	}
}
