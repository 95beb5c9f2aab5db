package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/contactly/backend/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction

	defaultAccessTokenMinutes = 30
	defaultRefreshTokenDays   = 7

	defaultUploadDir = "uploads"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Redis to connect to (blacklist, identity snapshots, reset tokens)
	RedisURL string

	// Secret key and signing algorithm for JWT tokens
	SecretKey string
	Algorithm string

	// Token lifetimes
	AccessTokenMinutes int
	RefreshTokenDays   int

	// Outbound SMTP; mail is disabled when host is empty
	MailHost     string
	MailPort     string
	MailUsername string
	MailPassword string
	MailFrom     string
	MailFromName string

	// Public base URL used in mailed links and avatar URLs
	AppBaseURL string

	// Directory for locally stored avatars
	UploadDir string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:           defaultLoggingLevel,
		ListenAddr:         defaultListenAddr,
		Environment:        defaultEnvironment,
		AccessTokenMinutes: defaultAccessTokenMinutes,
		RefreshTokenDays:   defaultRefreshTokenDays,
		UploadDir:          defaultUploadDir,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if parsed, err := strconv.Atoi(value); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":                 setString(&c.ListenAddr),
		"DB_URL":                      setString(&c.DatabaseDSN),
		"REDIS_URL":                   setString(&c.RedisURL),
		"SECRET_KEY":                  setString(&c.SecretKey),
		"ALGORITHM":                   setString(&c.Algorithm),
		"ACCESS_TOKEN_EXPIRE_MINUTES": setInt(&c.AccessTokenMinutes),
		"REFRESH_TOKEN_EXPIRE_DAYS":   setInt(&c.RefreshTokenDays),
		"MAIL_SERVER":                 setString(&c.MailHost),
		"MAIL_PORT":                   setString(&c.MailPort),
		"MAIL_USERNAME":               setString(&c.MailUsername),
		"MAIL_PASSWORD":               setString(&c.MailPassword),
		"MAIL_FROM":                   setString(&c.MailFrom),
		"MAIL_FROM_NAME":              setString(&c.MailFromName),
		"APP_BASE_URL":                setString(&c.AppBaseURL),
		"UPLOAD_DIR":                  setString(&c.UploadDir),
		"LOG_LEVEL":                   setString(&c.LogLevel),
		"ENVIRONMENT":                 setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("contactsd", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.RedisURL, "redis", "r", c.RedisURL, "Redis connection url")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVar(&c.Algorithm, "algorithm", c.Algorithm, "JWT signing algorithm")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
