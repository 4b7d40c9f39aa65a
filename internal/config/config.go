package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера.
// Любое незаданное поле берётся из переменной окружения или значения по умолчанию.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Sync      SyncConfig      `yaml:"sync"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr           string `yaml:"addr"`
	Transport      string `yaml:"transport"` // tcp | kcp
	RESTPort       int    `yaml:"rest_port"`
	MetricsPort    int    `yaml:"metrics_port"`
	IdleTimeoutSec int    `yaml:"idle_timeout_seconds"`
	QueueSize      int    `yaml:"queue_size"`
	RequestTimeout int    `yaml:"request_timeout_ms"` // 0 - без дедлайна на пакет
}

type StorageConfig struct {
	Backend string      `yaml:"backend"` // memory | badger | redis | maria
	DataDir string      `yaml:"data_dir"`
	Redis   RedisConfig `yaml:"redis"`
	Maria   MariaConfig `yaml:"maria"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type MariaConfig struct {
	DSN string `yaml:"dsn"`
}

type EventBusConfig struct {
	Kind      string `yaml:"kind"` // memory | jetstream
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type SyncConfig struct {
	BatchSize  int `yaml:"batch_size"`
	FlushEvery int `yaml:"flush_every_ms"`
}

type AuthConfig struct {
	Secret          string `yaml:"jwt_secret"` // base64, минимум 32 байта
	AllowDevTokens  bool   `yaml:"allow_dev_tokens"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// GetAddr возвращает адрес игрового listener'а
func (s *ServerConfig) GetAddr() string {
	return getStringWithEnvFallback(s.Addr, "STACKATTACK_ADDR", ":7777")
}

// GetTransport возвращает транспорт: tcp или kcp
func (s *ServerConfig) GetTransport() string {
	return getStringWithEnvFallback(s.Transport, "STACKATTACK_TRANSPORT", "tcp")
}

// GetRESTPort возвращает порт административного REST API
func (s *ServerConfig) GetRESTPort() int {
	return getIntWithEnvFallback(s.RESTPort, "STACKATTACK_REST_PORT", 8088)
}

// GetMetricsPort возвращает порт Prometheus метрик
func (s *ServerConfig) GetMetricsPort() int {
	return getIntWithEnvFallback(s.MetricsPort, "STACKATTACK_METRICS_PORT", 2112)
}

// GetIdleTimeout возвращает таймаут неактивного соединения
func (s *ServerConfig) GetIdleTimeout() time.Duration {
	return time.Duration(getIntWithEnvFallback(s.IdleTimeoutSec, "STACKATTACK_IDLE_TIMEOUT", 120)) * time.Second
}

// GetQueueSize возвращает размер очереди запросов диспетчера
func (s *ServerConfig) GetQueueSize() int {
	return getIntWithEnvFallback(s.QueueSize, "STACKATTACK_QUEUE_SIZE", 256)
}

// GetRequestTimeout возвращает дедлайн на обработку одного запроса (0 - без дедлайна)
func (s *ServerConfig) GetRequestTimeout() time.Duration {
	return time.Duration(getIntWithEnvFallback(s.RequestTimeout, "STACKATTACK_REQUEST_TIMEOUT_MS", 0)) * time.Millisecond
}

// GetBackend возвращает тип хранилища инвентарей
func (s *StorageConfig) GetBackend() string {
	return getStringWithEnvFallback(s.Backend, "STACKATTACK_STORAGE", "memory")
}

// GetDataDir возвращает каталог данных для BadgerDB
func (s *StorageConfig) GetDataDir() string {
	return getStringWithEnvFallback(s.DataDir, "STACKATTACK_DATA_DIR", "data")
}

// GetAddr возвращает адрес Redis
func (r *RedisConfig) GetAddr() string {
	return getStringWithEnvFallback(r.Addr, "STACKATTACK_REDIS_ADDR", "localhost:6379")
}

// GetKeyPrefix возвращает префикс ключей Redis
func (r *RedisConfig) GetKeyPrefix() string {
	return getStringWithEnvFallback(r.KeyPrefix, "STACKATTACK_REDIS_PREFIX", "stackattack:inv:")
}

// GetDSN возвращает строку подключения к MariaDB
func (m *MariaConfig) GetDSN() string {
	return getStringWithEnvFallback(m.DSN, "STACKATTACK_MARIA_DSN", "gameuser:gamepass@tcp(localhost:3306)/stackattack?parseTime=true")
}

// GetKind возвращает реализацию шины событий
func (e *EventBusConfig) GetKind() string {
	return getStringWithEnvFallback(e.Kind, "STACKATTACK_EVENTBUS", "memory")
}

// GetURL возвращает адрес NATS
func (e *EventBusConfig) GetURL() string {
	return getStringWithEnvFallback(e.URL, "STACKATTACK_NATS_URL", "nats://127.0.0.1:4222")
}

// GetStream возвращает имя JetStream стрима
func (e *EventBusConfig) GetStream() string {
	return getStringWithEnvFallback(e.Stream, "STACKATTACK_NATS_STREAM", "STACKATTACK")
}

// GetRetention возвращает срок хранения событий
func (e *EventBusConfig) GetRetention() time.Duration {
	return time.Duration(getIntWithEnvFallback(e.Retention, "STACKATTACK_NATS_RETENTION_HOURS", 24)) * time.Hour
}

// GetBuffer возвращает размер буфера in-memory шины
func (e *EventBusConfig) GetBuffer() int {
	return getIntWithEnvFallback(e.Buffer, "STACKATTACK_EVENTBUS_BUFFER", 1024)
}

// GetBatchSize возвращает размер пакета сохранения
func (s *SyncConfig) GetBatchSize() int {
	return getIntWithEnvFallback(s.BatchSize, "STACKATTACK_SYNC_BATCH", 64)
}

// GetFlushEvery возвращает интервал сброса грязных инвентарей
func (s *SyncConfig) GetFlushEvery() time.Duration {
	return time.Duration(getIntWithEnvFallback(s.FlushEvery, "STACKATTACK_SYNC_FLUSH_MS", 500)) * time.Millisecond
}

// GetSecret возвращает base64-секрет для подписи JWT (пустой - сгенерировать)
func (a *AuthConfig) GetSecret() string {
	return getStringWithEnvFallback(a.Secret, "STACKATTACK_JWT_SECRET", "")
}

// GetTokenTTL возвращает время жизни токена
func (a *AuthConfig) GetTokenTTL() time.Duration {
	return time.Duration(getIntWithEnvFallback(a.TokenTTLMinutes, "STACKATTACK_TOKEN_TTL_MIN", 24*60)) * time.Minute
}

// GetDevTokens сообщает, разрешена ли выдача dev-токенов через REST
func (a *AuthConfig) GetDevTokens() bool {
	return getBoolWithEnvFallback(a.AllowDevTokens, "STACKATTACK_DEV_TOKENS")
}

// GetLevel возвращает уровень логирования
func (l *LoggingConfig) GetLevel() string {
	return getStringWithEnvFallback(l.Level, "STACKATTACK_LOG_LEVEL", "info")
}

// GetDir возвращает каталог логов
func (l *LoggingConfig) GetDir() string {
	return getStringWithEnvFallback(l.Dir, "STACKATTACK_LOG_DIR", "logs")
}

// GetEnabled сообщает, включён ли экспорт трассировок
func (t *TelemetryConfig) GetEnabled() bool {
	return getBoolWithEnvFallback(t.Enabled, "STACKATTACK_TELEMETRY")
}

// GetServiceName возвращает имя сервиса для OpenTelemetry
func (t *TelemetryConfig) GetServiceName() string {
	return getStringWithEnvFallback(t.ServiceName, "OTEL_SERVICE_NAME", "stackattack")
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configVal int, envVar string, defaultVal int) int {
	if configVal > 0 {
		return configVal
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if n, err := strconv.Atoi(envVal); err == nil && n > 0 {
			return n
		}
	}

	return defaultVal
}

func getStringWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

func getBoolWithEnvFallback(configVal bool, envVar string) bool {
	if configVal {
		return true
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		b, err := strconv.ParseBool(envVal)
		return err == nil && b
	}
	return false
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV GAME_CONFIG; если и он пуст -
// возвращает пустой Config, все значения берутся из окружения и дефолтов.
// Перед этим подхватывает .env из текущего каталога, если он есть.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
