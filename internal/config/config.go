package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     WorldConfig     `yaml:"world"`
	Login     LoginConfig     `yaml:"login"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	RESTPort    int    `yaml:"rest_port"`
	MetricsPort int    `yaml:"metrics_port"`
	LogDir      string `yaml:"log_dir"`
	LogLevel    string `yaml:"log_level"`
	// LogLevels пороги консоли по компонентам: world, npc, login, game
	LogLevels map[string]string `yaml:"log_levels"`
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "GAME_METRICS_PORT", 2112)
}

// WorldConfig карта, предметы и NPC
type WorldConfig struct {
	// ItemsPath YAML каталог предметов; пусто означает встроенный
	ItemsPath string `yaml:"items_path"`
	NpcsPath  string `yaml:"npcs_path"`
	// FlushIntervalMs период разбора очереди событий карты
	FlushIntervalMs int             `yaml:"flush_interval_ms"`
	Generator       GeneratorConfig `yaml:"generator"`
	Npcs            []NpcSpawn      `yaml:"npcs"`
}

// FlushInterval период разбора очереди событий карты
func (w *WorldConfig) FlushInterval() time.Duration {
	if w.FlushIntervalMs <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(w.FlushIntervalMs) * time.Millisecond
}

type GeneratorConfig struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Floor  uint8 `yaml:"floor"`
	Seed   int64 `yaml:"seed"`
}

// NpcSpawn точка появления NPC
type NpcSpawn struct {
	Name string `yaml:"name"`
	X    uint16 `yaml:"x"`
	Y    uint16 `yaml:"y"`
	Z    uint8  `yaml:"z"`
}

// LoginConfig ответ сервера входа и учётные записи
type LoginConfig struct {
	MotdNumber  uint32 `yaml:"motd_number"`
	Motd        string `yaml:"motd"`
	WorldName   string `yaml:"world_name"`
	Host        string `yaml:"host"`
	Port        uint16 `yaml:"port"`
	FreePremium bool   `yaml:"free_premium"`
	JWTSecret   string `yaml:"jwt_secret"`
	// SessionTTLMinutes срок жизни ключа сессии
	SessionTTLMinutes int `yaml:"session_ttl_minutes"`
	// Accounts хранилище учётных записей: memory, maria или mongo
	Accounts string `yaml:"accounts"`
}

// GetJWTSecret секрет подписи ключей сессии: config -> GAME_JWT_SECRET
func (l *LoginConfig) GetJWTSecret() string {
	if l.JWTSecret != "" {
		return l.JWTSecret
	}
	return os.Getenv("GAME_JWT_SECRET")
}

// SessionTTL срок жизни ключа сессии
func (l *LoginConfig) SessionTTL() time.Duration {
	if l.SessionTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(l.SessionTTLMinutes) * time.Minute
}

// StorageConfig хранилища позиций и учётных записей
type StorageConfig struct {
	// Positions хранилище позиций: memory, redis, maria, badger или bolt
	Positions  string `yaml:"positions"`
	MariaDSN   string `yaml:"maria_dsn"`
	MongoURI   string `yaml:"mongo_uri"`
	MongoDB    string `yaml:"mongo_db"`
	RedisAddr  string `yaml:"redis_addr"`
	BadgerPath string `yaml:"badger_path"`
	BoltPath   string `yaml:"bolt_path"`
}

// GetMariaDSN DSN MariaDB: config -> GAME_MARIA_DSN
func (s *StorageConfig) GetMariaDSN() string {
	return getStringWithEnvFallback(s.MariaDSN, "GAME_MARIA_DSN", "")
}

// GetMongoURI адрес MongoDB: config -> GAME_MONGO_URI
func (s *StorageConfig) GetMongoURI() string {
	return getStringWithEnvFallback(s.MongoURI, "GAME_MONGO_URI", "mongodb://localhost:27017")
}

// GetRedisAddr адрес Redis: config -> GAME_REDIS_ADDR
func (s *StorageConfig) GetRedisAddr() string {
	return getStringWithEnvFallback(s.RedisAddr, "GAME_REDIS_ADDR", "localhost:6379")
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	// Compress сжимать полезную нагрузку событий zstd
	Compress bool `yaml:"compress"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	// Endpoint OTLP HTTP коллектор (host:port)
	Endpoint string `yaml:"endpoint"`
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}
	return defaultPort
}

func getStringWithEnvFallback(value, envVar, def string) string {
	if value != "" {
		return value
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return def
}

// Default конфигурация для запуска без файла
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.World.NpcsPath == "" {
		c.World.NpcsPath = "data/npcs"
	}
	if c.World.Generator.Width <= 0 {
		c.World.Generator.Width = 64
	}
	if c.World.Generator.Height <= 0 {
		c.World.Generator.Height = 64
	}
	if c.World.Generator.Floor == 0 {
		c.World.Generator.Floor = 7
	}
	if c.Login.WorldName == "" {
		c.Login.WorldName = "Tiles"
	}
	if c.Login.Host == "" {
		c.Login.Host = "127.0.0.1"
	}
	if c.Login.Port == 0 {
		c.Login.Port = 7172
	}
	if c.Login.Accounts == "" {
		c.Login.Accounts = "memory"
	}
	if c.Storage.Positions == "" {
		c.Storage.Positions = "memory"
	}
	if c.Storage.MongoDB == "" {
		c.Storage.MongoDB = "mmo_tiles"
	}
	if c.Storage.BadgerPath == "" {
		c.Storage.BadgerPath = "data/positions"
	}
	if c.Storage.BoltPath == "" {
		c.Storage.BoltPath = "data/positions.bolt"
	}
	if c.EventBus.Stream == "" {
		c.EventBus.Stream = "TILES"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "mmo-tiles"
	}
}

// Load читает YAML файл конфигурации.
// Если path == "", берётся ENV GAME_CONFIG; без файла возвращаются значения по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
