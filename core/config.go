package core

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	// DBConfig describes one of the two Postgres stores.
	DBConfig struct {
		Host       string
		Port       int
		User       string
		Password   string
		Name       string
		DisableTLS bool
	}

	Config struct {
		Env     string // DEV (default), TEST, QA, PROD
		AppName string
		Debug   bool

		// The academic-records store and the credentials store are
		// separate databases with independent transaction managers.
		AcademicDB    DBConfig
		CredentialsDB DBConfig

		DefaultAdminUname    string
		DefaultAdminPassword string
		DefaultAdminEmail    string

		// Base URI of the service, used in generated parent emails.
		ServiceURI       string
		DefaultFromEmail string
		SendgridAPIKey   string
		RollbarToken     string

		SaltLength     int
		PasswordLength int
		KeyTTL         time.Duration
	}
)

func (c DBConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// URL renders a lib/pq connection URL.
func (c DBConfig) URL() string {
	sslMode := "require"
	if c.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Address(),
		Path:     c.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// LoadConfig reads configuration from defaults, an optional per-environment
// .env file and the environment. The resulting Config is passed explicitly to
// whatever needs it; there is no package-level instance.
func LoadConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Camp")
	v.SetDefault("academicDBHost", "localhost")
	v.SetDefault("academicDBPort", 5432)
	v.SetDefault("academicDBUser", "camp")
	v.SetDefault("academicDBPassword", "camp")
	v.SetDefault("academicDBName", "camp_store")
	v.SetDefault("academicDBDisableTLS", true)
	v.SetDefault("credentialsDBHost", "localhost")
	v.SetDefault("credentialsDBPort", 5432)
	v.SetDefault("credentialsDBUser", "camp")
	v.SetDefault("credentialsDBPassword", "camp")
	v.SetDefault("credentialsDBName", "camp_auth")
	v.SetDefault("credentialsDBDisableTLS", true)
	v.SetDefault("adminUname", "root")
	v.SetDefault("adminPassword", "toot")
	v.SetDefault("adminEmail", "admin@camp.not.an.address")
	v.SetDefault("serviceURI", "http://localhost:8001/")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("saltLength", 16)
	v.SetDefault("passwordLength", 32)
	v.SetDefault("keyTTL", 20*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:     env,
		AppName: v.GetString("appName"),
		Debug:   v.GetBool("debug"),
		AcademicDB: DBConfig{
			Host:       v.GetString("academicDBHost"),
			Port:       v.GetInt("academicDBPort"),
			User:       v.GetString("academicDBUser"),
			Password:   v.GetString("academicDBPassword"),
			Name:       v.GetString("academicDBName"),
			DisableTLS: v.GetBool("academicDBDisableTLS"),
		},
		CredentialsDB: DBConfig{
			Host:       v.GetString("credentialsDBHost"),
			Port:       v.GetInt("credentialsDBPort"),
			User:       v.GetString("credentialsDBUser"),
			Password:   v.GetString("credentialsDBPassword"),
			Name:       v.GetString("credentialsDBName"),
			DisableTLS: v.GetBool("credentialsDBDisableTLS"),
		},
		DefaultAdminUname:    v.GetString("adminUname"),
		DefaultAdminPassword: v.GetString("adminPassword"),
		DefaultAdminEmail:    v.GetString("adminEmail"),
		ServiceURI:           v.GetString("serviceURI"),
		DefaultFromEmail:     v.GetString("defaultFromEmail"),
		SendgridAPIKey:       v.GetString("sendgridAPIKey"),
		RollbarToken:         v.GetString("rollbarToken"),
		SaltLength:           v.GetInt("saltLength"),
		PasswordLength:       v.GetInt("passwordLength"),
		KeyTTL:               v.GetDuration("keyTTL"),
	}
}
