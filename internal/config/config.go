package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/local.yaml"

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"prod"`
	PublicURL  string `yaml:"public_url" env:"PUBLIC_URL"`
	Storage    `yaml:"storage"`
	HTTPServer `yaml:"http_server"`
	Optimizer  `yaml:"optimizer"`

	AdminLogin string `yaml:"admin_login" env:"ADMIN_LOGIN" env-default:"admin"`
	AdminPass  string `yaml:"admin_pass" env:"ADMIN_PASS"`
}

type Storage struct {
	// Driver: mysql или sqlite
	Driver     string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"./data/doe.db"`
	DBUser     string `yaml:"db_user" env:"DB_USER"`
	DBPassword string `yaml:"db_password" env:"DB_PASSWORD"`
	DBHost     string `yaml:"db_host" env:"DB_HOST" env-default:"localhost"`
	DBPort     int    `yaml:"db_port" env:"DB_PORT" env-default:"3306"`
	DBName     string `yaml:"db_name" env:"DB_NAME" env-default:"doe_studio"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:4001"`
	Timeout         time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-default:"http://localhost:5173"`
}

type Optimizer struct {
	Timeout      time.Duration `yaml:"timeout" env:"OPTIMIZER_TIMEOUT" env-default:"2m"`
	PhaseMapSize int           `yaml:"phase_map_size" env-default:"256"`
	PixelCeiling int           `yaml:"pixel_ceiling" env-default:"3000"`
}

// MustConfig читает YAML из CONFIG_PATH (по умолчанию ./config/local.yaml),
// переменные окружения имеют приоритет.
func MustConfig() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
