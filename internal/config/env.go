package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Credentials are the secrets the bot cannot run without. They are read from
// the environment only, never from the config file, so the file can be
// committed and hot-reloaded safely.
type Credentials struct {
	TelegramToken    string `env:"TELEGRAM_BOT_TOKEN" env-required:"true"`
	USAJobsAuthKey   string `env:"USAJOBS_AUTHORIZATION_KEY" env-required:"true"`
	USAJobsUserAgent string `env:"USAJOBS_USER_AGENT" env-required:"true"`
}

// LoadCredentials reads required credentials from the environment.
// A missing credential is a fatal startup condition for the caller.
func LoadCredentials() (Credentials, error) {
	var c Credentials
	if err := cleanenv.ReadEnv(&c); err != nil {
		return Credentials{}, fmt.Errorf("missing required credentials: %w", err)
	}
	return c, nil
}
