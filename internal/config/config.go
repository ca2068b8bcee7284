package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vpgclub/clubbot/internal/model"
)

// Channels holds the channel identifiers the bot operates on
type Channels struct {
	Rules          model.ChannelID `mapstructure:"rules"`
	Registration   model.ChannelID `mapstructure:"registration"`
	Presentation   model.ChannelID `mapstructure:"presentation"`
	Arrivals       model.ChannelID `mapstructure:"arrivals"`
	Departures     model.ChannelID `mapstructure:"departures"`
	TicketCreation model.ChannelID `mapstructure:"ticket_creation"`
	TicketCategory model.ChannelID `mapstructure:"ticket_category"`
	StreamAnnounce model.ChannelID `mapstructure:"stream_announce"`

	// Optional; absent values disable the related feature
	TicketLog          model.ChannelID `mapstructure:"ticket_log"`
	EvaluationCategory model.ChannelID `mapstructure:"evaluation_category"`
	Help               model.ChannelID `mapstructure:"help"`
}

// Roles holds the role identifiers backing the capability set
type Roles struct {
	Admin      model.RoleID `mapstructure:"admin"`
	Verified   model.RoleID `mapstructure:"verified"`
	OnTrial    model.RoleID `mapstructure:"on_trial"`
	FullMember model.RoleID `mapstructure:"full_member"`
	Streamer   model.RoleID `mapstructure:"streamer"`

	// Optional
	Newcomer   model.RoleID   `mapstructure:"newcomer"`
	Staff      []model.RoleID `mapstructure:"staff"`
	StreamPing model.RoleID   `mapstructure:"stream_ping"`
}

// Timing holds the workflow delays and timeouts
type Timing struct {
	DialogStepTimeout time.Duration `mapstructure:"dialog_step_timeout"`
	TicketGraceDelay  time.Duration `mapstructure:"ticket_grace_delay"`
	EvalGraceDelay    time.Duration `mapstructure:"eval_grace_delay"`
	PurgeDelay        time.Duration `mapstructure:"purge_delay"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type     string `mapstructure:"type"`
	DataDir  string `mapstructure:"data_dir"`
	RedisURL string `mapstructure:"redis_url"`
}

// Config is the full bot configuration
type Config struct {
	Token      string        `mapstructure:"token"`
	GuildID    string        `mapstructure:"guild_id"`
	ServerName string        `mapstructure:"server_name"`
	HTTPAddr   string        `mapstructure:"http_addr"`
	Channels   Channels      `mapstructure:"channels"`
	Roles      Roles         `mapstructure:"roles"`
	Timing     Timing        `mapstructure:"timing"`
	Storage    StorageConfig `mapstructure:"storage"`
}

// Load reads configuration from the optional YAML file at path plus
// CLUBBOT_* environment variables (env wins). Validation errors list
// every missing required key at once.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CLUBBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Register every key with a default so AutomaticEnv finds env-only
	// values during Unmarshal.
	for _, key := range []string{
		"token", "guild_id",
		"channels.rules", "channels.registration", "channels.presentation",
		"channels.arrivals", "channels.departures", "channels.ticket_creation",
		"channels.ticket_category", "channels.stream_announce",
		"channels.ticket_log", "channels.evaluation_category", "channels.help",
		"roles.admin", "roles.verified", "roles.on_trial", "roles.full_member",
		"roles.streamer", "roles.newcomer", "roles.stream_ping",
		"storage.redis_url",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("server_name", "the server")
	v.SetDefault("http_addr", ":8090")
	v.SetDefault("timing.dialog_step_timeout", 300*time.Second)
	v.SetDefault("timing.ticket_grace_delay", 10*time.Second)
	v.SetDefault("timing.eval_grace_delay", 15*time.Second)
	v.SetDefault("timing.purge_delay", 10*time.Second)
	v.SetDefault("storage.type", "file")
	v.SetDefault("storage.data_dir", "data")
}

// Validate checks that every required setting is present
func (c *Config) Validate() error {
	var missing []string

	require := func(key, value string) {
		if value == "" {
			missing = append(missing, key)
		}
	}

	require("token", c.Token)
	require("guild_id", c.GuildID)
	require("channels.rules", string(c.Channels.Rules))
	require("channels.registration", string(c.Channels.Registration))
	require("channels.presentation", string(c.Channels.Presentation))
	require("channels.arrivals", string(c.Channels.Arrivals))
	require("channels.departures", string(c.Channels.Departures))
	require("channels.ticket_creation", string(c.Channels.TicketCreation))
	require("channels.ticket_category", string(c.Channels.TicketCategory))
	require("channels.stream_announce", string(c.Channels.StreamAnnounce))
	require("roles.admin", string(c.Roles.Admin))
	require("roles.verified", string(c.Roles.Verified))
	require("roles.on_trial", string(c.Roles.OnTrial))
	require("roles.full_member", string(c.Roles.FullMember))
	require("roles.streamer", string(c.Roles.Streamer))

	if c.Storage.Type == "redis" && c.Storage.RedisURL == "" {
		missing = append(missing, "storage.redis_url")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.Storage.Type {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("invalid storage.type %q: must be memory, file or redis", c.Storage.Type)
	}

	return nil
}
