package config

import (
	"errors"
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"time"
	_ "time/tzdata"
)

var (
	ErrConfigNotLoaded = errors.New("config not loaded")
)

type Environment string

const (
	Production  Environment = "prod"
	Development Environment = "dev"
)

func (e *Environment) SetValue(s string) error {
	*e = Environment(s)
	if *e != Production && *e != Development {
		return configNotLoadedErr(`only "prod" and "dev" environments are allowed`)
	}
	return nil
}

type ArchiveConfig struct {
	Endpoint        string        `yaml:"endpoint" env:"ENDPOINT"`
	Region          string        `yaml:"region" env:"REGION" env-default:"us-east-1"`
	Bucket          string        `yaml:"bucket" env:"BUCKET"`
	Prefix          string        `yaml:"prefix" env:"PREFIX" env-default:"exports"`
	AccessKeyID     string        `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string        `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	LinkTTL         time.Duration `yaml:"link_ttl" env:"LINK_TTL" env-default:"15m"`
}

func (c ArchiveConfig) Enabled() bool {
	return c.Bucket != ""
}

type Config struct {
	App struct {
		Env      Environment `yaml:"env" env:"ENV" env-required:""`
		Timezone string      `yaml:"timezone" env:"TIMEZONE" env-default:"UTC"`
	} `yaml:"app" env-prefix:"APP_" env-required:""`

	Server struct {
		Host         string        `yaml:"host" env:"HOST" env-default:"localhost"`
		Port         int           `yaml:"port" env:"PORT" env-default:"8080"`
		ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" env-default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" env-default:"10s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" env-default:"10s"`
	} `yaml:"server" env-prefix:"SERVER_"`

	DB struct {
		DSN             string        `yaml:"dsn" env:"DSN" env-required:""`
		MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS" env-default:"10"`
		MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS" env-default:"5"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME" env-default:"30m"`
	} `yaml:"db" env-prefix:"DB_" env-required:""`

	JWT struct {
		AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"2h"`
		Secret         string        `yaml:"secret" env:"SECRET" env-required:""`
	} `yaml:"jwt" env-prefix:"JWT_" env-required:""`

	Archive ArchiveConfig `yaml:"archive" env-prefix:"ARCHIVE_"`
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, configNotLoadedErr("invalid timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

func Load(filePath string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig(filePath, cfg); err != nil {
		return nil, configNotLoadedErr("config not loaded: %w", err)
	}

	if err := cfg.App.Env.SetValue(string(cfg.App.Env)); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad(filePath string) *Config {
	cfg, err := Load(filePath)
	if err != nil {
		panic(err)
	}
	return cfg
}

func configNotLoadedErr(format string, args ...any) error {
	return errors.Join(fmt.Errorf(format, args...), ErrConfigNotLoaded)
}
