package config

import (
	"hqbot/internal/application"
	"hqbot/internal/delivery/rest"
	"hqbot/internal/notify"
	"hqbot/internal/repository"
	"hqbot/internal/workers"
	"hqbot/pkg/telemetry"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Repo         repository.Config `envPrefix:"REPO_"`
	DiscordToken string            `env:"DISCORD_TOKEN" envDefault:""`
	LogLevel     string            `env:"LOGGER_LEVEL" envDefault:"debug"`

	GuildID          string   `env:"DISCORD_GUILD_ID" envDefault:""`
	MainChannelID    string   `env:"MAIN_CHANNEL_ID" envDefault:""`
	AllowedChannelID string   `env:"ALLOWED_CHANNEL_ID" envDefault:""`
	AdminUserIDs     []string `env:"ADMIN_USER_IDS" envSeparator:"," envDefault:""`

	Chifumi      application.Config `envPrefix:"CHIFUMI_"`
	NotifyBuffer int                `env:"NOTIFY_BUFFER" envDefault:"256"`
	Redis        notify.RedisConfig `envPrefix:"REDIS_"`
	HTTP         rest.Config        `envPrefix:"HTTP_"`
	Sweep        workers.Config     `envPrefix:"SWEEP_"`
	Telemetry    telemetry.Config   `envPrefix:"OTEL_"`
}

func ReadEnvConfig(cfg *Config) error {
	return env.Parse(cfg)
}
