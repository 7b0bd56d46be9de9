package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Printing  PrintingConfig
	Converter ConverterConfig
	JWT       JWTConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Path            string // sqlite database file
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	Channel  string // pub/sub channel carrying job events between instances
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds bearer token settings for requester identity.
// An empty secret falls back to identity headers.
type JWTConfig struct {
	Secret string
	Issuer string
}

// SwaggerConfig holds API documentation endpoint settings
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool     // require a requester identity
	AllowedIPs  []string // IPs or CIDRs; empty allows all
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// StorageConfig holds document storage settings
type StorageConfig struct {
	Type              string // local, s3
	BasePath          string
	RetentionDays     int
	RetentionSchedule string
	// S3-compatible settings
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// PrintingConfig holds dispatch and reconciliation settings
type PrintingConfig struct {
	Backend             string // cups, spooler, ipp
	Devices             []string
	DevicesFile         string
	DiscoverDevices     bool
	DiscoveryTTL        time.Duration
	PollInterval        time.Duration
	MaxPollDuration     time.Duration
	HealthCheckAttempts int
	HealthCheckBackoff  time.Duration
	CUPS                CUPSConfig
	Spooler             SpoolerConfig
	IPP                 IPPConfig
}

// CUPSConfig holds the CUPS command line settings
type CUPSConfig struct {
	LpPath         string
	LpstatPath     string
	IpptoolPath    string
	ServerURI      string
	User           string
	PageLogPath    string
	CommandTimeout time.Duration
}

// SpoolerConfig holds the Windows spooler settings
type SpoolerConfig struct {
	PowerShellPath string
	SumatraPath    string
	TempDir        string
	CommandTimeout time.Duration
}

// IPPConfig holds the native IPP client settings
type IPPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// ConverterConfig holds document conversion settings
type ConverterConfig struct {
	MaxConcurrent      int
	LibreOfficePath    string
	LibreOfficeTimeout time.Duration
	TempDir            string
	ChromeRemoteURL    string
	ChromeTimeout      time.Duration
	ChromeNoSandbox    bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool   // Export zap logs through the OTLP log pipeline
	ProfilingEnabled  bool   // Continuous profiling via Pyroscope
	ProfilingServer   string // Pyroscope server address
	// Database tracing options
	DBTraceEnabled bool // Enable database query tracing (otelgorm)
	DBLogFullSQL   bool // Log full SQL statements (dev only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PRINTDESK_ prefix (e.g., PRINTDESK_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/printdesk")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("PRINTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Channel:  v.GetString("redis.channel"),
		},
		Storage: StorageConfig{
			Type:              v.GetString("storage.type"),
			BasePath:          v.GetString("storage.base_path"),
			RetentionDays:     v.GetInt("storage.retention_days"),
			RetentionSchedule: v.GetString("storage.retention_schedule"),
			Bucket:            v.GetString("storage.bucket"),
			Prefix:            v.GetString("storage.prefix"),
			Region:            v.GetString("storage.region"),
			Endpoint:          v.GetString("storage.endpoint"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
		},
		Printing: PrintingConfig{
			Backend:             v.GetString("printing.backend"),
			Devices:             v.GetStringSlice("printing.devices"),
			DevicesFile:         v.GetString("printing.devices_file"),
			DiscoverDevices:     v.GetBool("printing.discover_devices"),
			DiscoveryTTL:        v.GetDuration("printing.discovery_ttl"),
			PollInterval:        v.GetDuration("printing.poll_interval"),
			MaxPollDuration:     v.GetDuration("printing.max_poll_duration"),
			HealthCheckAttempts: v.GetInt("printing.health_check.attempts"),
			HealthCheckBackoff:  v.GetDuration("printing.health_check.backoff"),
			CUPS: CUPSConfig{
				LpPath:         v.GetString("printing.cups.lp_path"),
				LpstatPath:     v.GetString("printing.cups.lpstat_path"),
				IpptoolPath:    v.GetString("printing.cups.ipptool_path"),
				ServerURI:      v.GetString("printing.cups.server_uri"),
				User:           v.GetString("printing.cups.user"),
				PageLogPath:    v.GetString("printing.cups.page_log_path"),
				CommandTimeout: v.GetDuration("printing.cups.command_timeout"),
			},
			Spooler: SpoolerConfig{
				PowerShellPath: v.GetString("printing.spooler.powershell_path"),
				SumatraPath:    v.GetString("printing.spooler.sumatra_path"),
				TempDir:        v.GetString("printing.spooler.temp_dir"),
				CommandTimeout: v.GetDuration("printing.spooler.command_timeout"),
			},
			IPP: IPPConfig{
				Host:     v.GetString("printing.ipp.host"),
				Port:     v.GetInt("printing.ipp.port"),
				Username: v.GetString("printing.ipp.username"),
				Password: v.GetString("printing.ipp.password"),
				UseTLS:   v.GetBool("printing.ipp.use_tls"),
			},
		},
		Converter: ConverterConfig{
			MaxConcurrent:      v.GetInt("converter.max_concurrent"),
			LibreOfficePath:    v.GetString("converter.libreoffice_path"),
			LibreOfficeTimeout: v.GetDuration("converter.libreoffice_timeout"),
			TempDir:            v.GetString("converter.temp_dir"),
			ChromeRemoteURL:    v.GetString("converter.chrome_remote_url"),
			ChromeTimeout:      v.GetDuration("converter.chrome_timeout"),
			ChromeNoSandbox:    v.GetBool("converter.chrome_no_sandbox"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:   v.GetString("telemetry.profiling_server"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		},
	}

	cfg.Printing.Devices = splitList(cfg.Printing.Devices)
	cfg.HTTP.CORSAllowOrigins = splitList(cfg.HTTP.CORSAllowOrigins)
	cfg.Swagger.AllowedIPs = splitList(cfg.Swagger.AllowedIPs)

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitList accepts both TOML arrays and comma-separated env values
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "printdesk"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/printdesk.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "printdesk"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "printdesk:events"
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "printdesk"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 60 * time.Second
	}
	// WriteTimeout stays zero unless configured; the event stream holds responses open.
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 50 << 20 // 50MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-User-ID", "X-User-Name"}
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./data/documents"
	}
	if cfg.Storage.RetentionDays == 0 {
		cfg.Storage.RetentionDays = 30
	}
	if cfg.Storage.RetentionSchedule == "" {
		cfg.Storage.RetentionSchedule = "0 3 * * *"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Printing.Backend == "" {
		cfg.Printing.Backend = "cups"
	}
	if cfg.Printing.DiscoveryTTL == 0 {
		cfg.Printing.DiscoveryTTL = time.Minute
	}
	if cfg.Printing.PollInterval == 0 {
		cfg.Printing.PollInterval = 2 * time.Second
	}
	if cfg.Printing.MaxPollDuration == 0 {
		cfg.Printing.MaxPollDuration = 24 * time.Hour
	}
	if cfg.Printing.HealthCheckAttempts == 0 {
		cfg.Printing.HealthCheckAttempts = 3
	}
	if cfg.Printing.HealthCheckBackoff == 0 {
		cfg.Printing.HealthCheckBackoff = 2 * time.Second
	}
	if cfg.Converter.MaxConcurrent == 0 {
		cfg.Converter.MaxConcurrent = 2
	}
	if cfg.Converter.LibreOfficeTimeout == 0 {
		cfg.Converter.LibreOfficeTimeout = 120 * time.Second
	}
	if cfg.Converter.ChromeTimeout == 0 {
		cfg.Converter.ChromeTimeout = 30 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "printdesk"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Printing.Backend {
	case "cups", "spooler", "ipp":
	default:
		return fmt.Errorf("printing.backend must be one of cups, spooler, ipp, got %q", c.Printing.Backend)
	}
	if c.Printing.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("printing.poll_interval must be at least 100ms")
	}
	if c.Printing.MaxPollDuration < c.Printing.PollInterval {
		return fmt.Errorf("printing.max_poll_duration cannot be shorter than printing.poll_interval")
	}
	if c.Printing.HealthCheckAttempts < 1 {
		return fmt.Errorf("printing.health_check.attempts must be at least 1")
	}
	if c.Converter.MaxConcurrent < 1 {
		return fmt.Errorf("converter.max_concurrent must be at least 1")
	}

	switch c.Storage.Type {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("storage.type must be local or s3, got %q", c.Storage.Type)
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("storage.retention_days cannot be negative")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret != "" && len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServer == "" {
		return fmt.Errorf("telemetry.profiling_server is required when profiling is enabled")
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
