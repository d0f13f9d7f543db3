package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App     AppConfig
	Storage StorageConfig
	API     APIConfig
	Retry   RetryConfig
	NATS    NATSConfig
	DB      DBConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// StorageConfig rutas locales del dispositivo: una base SQLite y un directorio de imágenes por tenant.
type StorageConfig struct {
	DataDir   string
	ImagesDir string
}

// APIConfig servidor central contra el que se sincroniza.
type APIConfig struct {
	BaseURL    string
	Timeout    time.Duration // timeout normal por petición
	RawTimeout time.Duration // timeout extendido del reintento "red inalcanzable"
	PageSize   int
}

// RetryConfig parámetros de la política de reintentos de red.
type RetryConfig struct {
	Attempts     int
	InitialDelay time.Duration
	Factor       float64
	Jitter       bool
}

// NATSConfig publicación opcional de eventos de sincronización. URL vacía = deshabilitado.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// DBConfig configuración de PostgreSQL del servidor de desarrollo.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
}

// Enabled indica si hay PostgreSQL configurado; si no, el servidor de desarrollo usa memoria.
func (c DBConfig) Enabled() bool {
	return c.DatabaseURL != "" || c.Host != ""
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT (emisión en el servidor de desarrollo).
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP de desarrollo.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DATA_DIR, API_BASE_URL, RETRY_ATTEMPTS, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "preventa"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataDir:   getString(v, "DATA_DIR", "./data"),
			ImagesDir: getString(v, "IMAGES_DIR", "./data/images"),
		},
		API: APIConfig{
			BaseURL:    strings.TrimRight(getString(v, "API_BASE_URL", "http://localhost:8080"), "/"),
			Timeout:    time.Duration(getInt(v, "API_TIMEOUT_SECONDS", 20)) * time.Second,
			RawTimeout: time.Duration(getInt(v, "API_RAW_TIMEOUT_SECONDS", 60)) * time.Second,
			PageSize:   getInt(v, "API_PAGE_SIZE", 500),
		},
		Retry: RetryConfig{
			Attempts:     getInt(v, "RETRY_ATTEMPTS", 3),
			InitialDelay: time.Duration(getInt(v, "RETRY_INITIAL_DELAY_MS", 1500)) * time.Millisecond,
			Factor:       getFloat(v, "RETRY_FACTOR", 2),
			Jitter:       getBool(v, "RETRY_JITTER", false),
		},
		NATS: NATSConfig{
			URL:           getString(v, "NATS_URL", ""),
			SubjectPrefix: getString(v, "NATS_SUBJECT_PREFIX", "preventa"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", ""),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "preventa"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 10),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60*24*7),
			Issuer:     getString(v, "JWT_ISSUER", "preventa"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
	}

	if cfg.Retry.Attempts < 1 {
		return nil, fmt.Errorf("config: RETRY_ATTEMPTS debe ser >= 1, se recibió %d", cfg.Retry.Attempts)
	}
	if cfg.API.PageSize < 1 {
		return nil, fmt.Errorf("config: API_PAGE_SIZE debe ser >= 1, se recibió %d", cfg.API.PageSize)
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getFloat(v *viper.Viper, key string, def float64) float64 {
	if v.IsSet(key) {
		f, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64)
		if err != nil {
			return def
		}
		return f
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return def
		}
		return b
	}
	return def
}
