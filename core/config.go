package core

import (
	"fmt"
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
		Host            string
		Port            string
		DebugHost       string
		ShutdownTimeout time.Duration
		JWTExpiration   time.Duration
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

	// ContestAPIConfig configures the external contest platform client.
	ContestAPIConfig struct {
		BaseURL    string
		Token      string
		Timeout    time.Duration
		MaxRetries int
	}

	TelegramConfig struct {
		Token  string
		ChatID int64
	}

	SyncConfig struct {
		Enabled  bool
		Interval time.Duration
	}

	Config struct {
		AppName           string
		Env               string
		Build             string
		Debug             bool
		TestMode          bool
		SecretKey         string
		WorkDir           string
		FrontendBaseURL   string
		AdminUsername     string
		AdminPasswordHash string
		RollbarToken      string
		SendgridApiKey    string
		DefaultFrom       string
		OperatorEmail     string

		Server   ServerConfig
		Database DatabaseConfig
		Contest  ContestAPIConfig
		Telegram TelegramConfig
		Sync     SyncConfig
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("appName", "Zachetka")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("secretKey", "h2(h!x)#*c2(#yg4h^$cegm2emypoq5-wer)enb$+57=dz&uox")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("adminUsername", "admin")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpiration", 24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "zachetka")
	v.SetDefault("database.user", "zachetka")
	v.SetDefault("database.password", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.disableTls", true)

	v.SetDefault("contest.baseUrl", "https://api.contest.yandex.net/api/public/v2")
	v.SetDefault("contest.timeout", 30*time.Second)
	v.SetDefault("contest.maxRetries", 1)

	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.interval", 15*time.Minute)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		AppName:           v.GetString("appName"),
		Env:               env,
		Build:             v.GetString("build"),
		Debug:             v.GetBool("debug"),
		TestMode:          v.GetBool("testMode"),
		SecretKey:         v.GetString("secretKey"),
		WorkDir:           Getwd(),
		FrontendBaseURL:   v.GetString("frontendBaseUrl"),
		AdminUsername:     v.GetString("adminUsername"),
		AdminPasswordHash: v.GetString("adminPasswordHash"),
		RollbarToken:      v.GetString("rollbarToken"),
		SendgridApiKey:    v.GetString("sendgridApiKey"),
		DefaultFrom:       v.GetString("defaultFromEmail"),
		OperatorEmail:     v.GetString("operatorEmail"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetString("server.port"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			JWTExpiration:   v.GetDuration("server.jwtExpiration"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			DisableTLS:    v.GetBool("database.disableTls"),
		},
		Contest: ContestAPIConfig{
			BaseURL:    v.GetString("contest.baseUrl"),
			Token:      v.GetString("contest.token"),
			Timeout:    v.GetDuration("contest.timeout"),
			MaxRetries: v.GetInt("contest.maxRetries"),
		},
		Telegram: TelegramConfig{
			Token:  v.GetString("telegram.token"),
			ChatID: v.GetInt64("telegram.chatId"),
		},
		Sync: SyncConfig{
			Enabled:  v.GetBool("sync.enabled"),
			Interval: v.GetDuration("sync.interval"),
		},
	}
}

func (c *Config) ServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFrom}
}

func (db DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%s", db.Host, db.Port)
}
