package config

import (
	"time"

	"github.com/gotify/configor"
)

type Configuration struct {
	App struct {
		ListenAddr string `default:"" env:"APP_HOST"`
		Port       int    `default:"8080"  env:"APP_PORT"`
		LogLevel   string `default:"info" env:"APP_LOG_LEVEL"`
		BodyLimit  int    `default:"1048576" env:"APP_BODY_LIMIT"`
	}
	Database struct {
		Host           string `default:"127.0.0.1" env:"DB_HOST"`
		Port           string `default:"5432" env:"DB_PORT"`
		Name           string `default:"approvals" env:"DB_NAME"`
		User           string `default:"postgres" env:"DB_USER"`
		Password       string `default:"postgres" env:"DB_PASSWORD"`
		MigrateOnStart *bool  `default:"true" env:"DB_MIGRATE_ON_START"`
		DebugMode      *bool  `default:"false" env:"DB_DEBUG_MODE"`
		MigrateCatalog *bool  `default:"false" env:"DB_MIGRATE_CATALOG"` // dev only: users, members and entity tables
	}
	Auth struct {
		JWTSecret string `default:"" env:"AUTH_JWT_SECRET"`
	}
	Redis struct {
		URL     string `default:"" env:"REDIS_URL"`
		Channel string `default:"approvals:changed" env:"REDIS_CHANNEL"`
	}
	Smtp struct {
		User       string `default:"" env:"SMTP_USER"`
		Password   string `default:"" env:"SMTP_PASSWORD"`
		Host       string `default:"" env:"SMTP_HOST"`
		Port       string `default:"" env:"SMTP_PORT"`
		TLSEnabled *bool  `default:"true" env:"SMTP_TLS_ENABLED"`
		From       string `default:"" env:"SMTP_FROM"`
	}
	Timeouts struct {
		StoreMs   int `default:"5000" env:"TIMEOUT_STORE_MS"`
		GatewayMs int `default:"3000" env:"TIMEOUT_GATEWAY_MS"`
		NotifyMs  int `default:"5000" env:"TIMEOUT_NOTIFY_MS"`
	}
	Approval struct {
		CommentMaxLength   int `default:"1000" env:"APPROVAL_COMMENT_MAX_LENGTH"`
		DirectoryCacheSize int `default:"1024" env:"APPROVAL_DIRECTORY_CACHE_SIZE"`
	}
	Tracing struct {
		Enabled     *bool  `default:"false" env:"TRACING_ENABLED"`
		ServiceName string `default:"approvals-backend" env:"TRACING_SERVICE_NAME"`
		OutputFile  string `default:"" env:"TRACING_OUTPUT_FILE"`
	}
}

func (c Configuration) StoreTimeout() time.Duration {
	return time.Duration(c.Timeouts.StoreMs) * time.Millisecond
}

func (c Configuration) GatewayTimeout() time.Duration {
	return time.Duration(c.Timeouts.GatewayMs) * time.Millisecond
}

func (c Configuration) NotifyTimeout() time.Duration {
	return time.Duration(c.Timeouts.NotifyMs) * time.Millisecond
}

func configFiles() []string {
	return []string{"config.yml"}
}

// Load reads config.yml (when present) and the environment overrides.
func Load(files ...string) (*Configuration, error) {
	if len(files) == 0 {
		files = configFiles()
	}
	conf := new(Configuration)
	err := configor.New(&configor.Config{}).Load(conf, files...)
	if err != nil {
		return nil, err
	}
	return conf, nil
}
