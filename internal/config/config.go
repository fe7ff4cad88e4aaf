package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel    string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	TCPPort     string        `yaml:"tcp-port" env:"TCP_PORT" env-default:"5050"`
	SocketPort  string        `yaml:"ws-port" env:"WS_PORT" env-default:"8081"`
	HTTPPort    string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	ReadTimeout time.Duration `yaml:"read-timeout" env:"READ_TIMEOUT" env-default:"5m"`
	Session     Session       `yaml:"session"`
	Redis       Redis         `yaml:"redis"`
}

// Session - defaults for sessions created without explicit settings.
type Session struct {
	Rows       int    `yaml:"rows" env:"SESSION_ROWS" env-default:"3"`
	Cols       int    `yaml:"cols" env:"SESSION_COLS" env-default:"3"`
	MaxPlayers int    `yaml:"max-players" env:"SESSION_MAX_PLAYERS" env-default:"2"`
	Variant    string `yaml:"variant" env:"SESSION_VARIANT" env-default:"TRES_EN_LINEA"`
	AutoStart  bool   `yaml:"auto-start" env:"SESSION_AUTO_START" env-default:"true"`
}

type Redis struct {
	Enabled        bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host           string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port           string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password       string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB             int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	SnapshotTTL    time.Duration `yaml:"snapshot-ttl" env:"REDIS_SNAPSHOT_TTL" env-default:"1h"`
	LeaderboardKey string        `yaml:"leaderboard-key" env:"REDIS_LEADERBOARD_KEY" env-default:"leaderboard:wins"`
}

// MustLoad - load all configurations in config.yml file, environment variables take precedence.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
