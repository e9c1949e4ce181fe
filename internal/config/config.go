package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 3330
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "clauselens"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"` // MySQL DSN
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Env            string                `yaml:"env"` // "development" | "production"
	Cluster        bool                  `yaml:"cluster"`
	ClusterWorkers int                   `yaml:"cluster_workers"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
	LogRotateSize  *int                  `yaml:"log_rotate_size_mb"`
	LogRotateKeep  *int                  `yaml:"log_rotate_keep"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Timezone       string                `yaml:"timezone"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type RuntimePathsConfig struct {
	Logs      string `yaml:"logs"`
	Archives  string `yaml:"archives"`
	Static    string `yaml:"static"`
	Dashboard string `yaml:"dashboard"`
}

type rawAppConfig struct {
	Port               int               `yaml:"port"`
	DSN                string            `yaml:"dsn"`
	DatabaseURL        string            `yaml:"database_url"`
	RedisURL           string            `yaml:"redis_url"`
	Database           rawDatabaseConfig `yaml:"database"`
	Redis              rawRedisConfig    `yaml:"redis"`
	DBHost             string            `yaml:"db_host"`
	DBPort             int               `yaml:"db_port"`
	DBUser             string            `yaml:"db_user"`
	DBPassword         string            `yaml:"db_password"`
	DBName             string            `yaml:"db_name"`
	DBCharset          string            `yaml:"db_charset"`
	DBLoc              string            `yaml:"db_loc"`
	DBParseTime        *bool             `yaml:"db_parse_time"`
	RedisHost          string            `yaml:"redis_host"`
	RedisPort          int               `yaml:"redis_port"`
	RedisUsername      string            `yaml:"redis_username"`
	RedisPassword      string            `yaml:"redis_password"`
	RedisDB            *int              `yaml:"redis_db"`
	RedisTLS           *bool             `yaml:"redis_tls"`
	Env                string            `yaml:"env"`
	Cluster            *bool             `yaml:"cluster"`
	ClusterWorkers     int               `yaml:"cluster_workers"`
	Paths              rawPathsConfig    `yaml:"paths"`
	LogDir             string            `yaml:"log_dir"`
	LogsDir            string            `yaml:"logs_dir"`
	LogRotateSize      *int              `yaml:"log_rotate_size_mb"`
	LogRotateKeep      *int              `yaml:"log_rotate_keep"`
	ArchiveDir         string            `yaml:"archive_dir"`
	ArchivesDir        string            `yaml:"archives_dir"`
	StaticDir          string            `yaml:"static_dir"`
	DashboardDir       string            `yaml:"dashboard_dir"`
	AllowedOrigins     []string          `yaml:"allowed_origins"`
	CORSAllowedOrigins []string          `yaml:"cors_allowed_origins"`
	JWTSecret          string            `yaml:"jwt_secret"`
	Timezone           string            `yaml:"timezone"`
	TZ                 string            `yaml:"tz"`
}

type rawDatabaseConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type rawPathsConfig struct {
	Logs      string `yaml:"logs"`
	Archives  string `yaml:"archives"`
	Static    string `yaml:"static"`
	Dashboard string `yaml:"dashboard"`
}

func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	raw := rawAppConfig{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	applyRawAppConfig(&cfg, raw)
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return nil, fmt.Errorf("invalid database.port %d in %q, expected 1-65535", cfg.Database.Port, path)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return nil, fmt.Errorf("invalid redis.port %d in %q, expected 1-65535", cfg.Redis.Port, path)
	}
	if cfg.Redis.DB < 0 {
		return nil, fmt.Errorf("invalid redis.db %d in %q, expected >= 0", cfg.Redis.DB, path)
	}
	if cfg.ClusterWorkers < 0 {
		return nil, fmt.Errorf("invalid cluster_workers %d in %q, expected >= 0", cfg.ClusterWorkers, path)
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
	}
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if raw.Cluster != nil {
		cfg.Cluster = *raw.Cluster
	}
	if raw.ClusterWorkers != 0 {
		cfg.ClusterWorkers = raw.ClusterWorkers
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogsDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.Paths.Archives); v != "" {
		cfg.Paths.Archives = v
	}
	if v := strings.TrimSpace(raw.ArchiveDir); v != "" {
		cfg.Paths.Archives = v
	}
	if v := strings.TrimSpace(raw.ArchivesDir); v != "" {
		cfg.Paths.Archives = v
	}
	if v := strings.TrimSpace(raw.Paths.Static); v != "" {
		cfg.Paths.Static = v
	}
	if v := strings.TrimSpace(raw.StaticDir); v != "" {
		cfg.Paths.Static = v
	}
	if v := strings.TrimSpace(raw.Paths.Dashboard); v != "" {
		cfg.Paths.Dashboard = v
	}
	if v := strings.TrimSpace(raw.DashboardDir); v != "" {
		cfg.Paths.Dashboard = v
	}
	if raw.LogRotateSize != nil {
		v := *raw.LogRotateSize
		cfg.LogRotateSize = &v
	}
	if raw.LogRotateKeep != nil {
		v := *raw.LogRotateKeep
		cfg.LogRotateKeep = &v
	}

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	}

	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		cfg.Timezone = v
	}

	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	cfg.Paths = normalizeRuntimePaths(cfg.Paths)
	cfg.Env = normalizeEnv(cfg.Env)
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	cfg := current

	if v := strings.TrimSpace(raw.Database.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Database.URL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DatabaseURL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Database.Host); v != "" {
		cfg.Host = v
	}
	if v := strings.TrimSpace(raw.DBHost); v != "" {
		cfg.Host = v
	}
	if raw.Database.Port != 0 {
		cfg.Port = raw.Database.Port
	}
	if raw.DBPort != 0 {
		cfg.Port = raw.DBPort
	}
	if v := strings.TrimSpace(raw.Database.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Database.Username); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.DBUser); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Database.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(raw.DBPassword); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(raw.Database.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.Database.DBName); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.DBName); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.Database.Charset); v != "" {
		cfg.Charset = v
	}
	if v := strings.TrimSpace(raw.DBCharset); v != "" {
		cfg.Charset = v
	}
	if raw.Database.ParseTime != nil {
		cfg.ParseTime = *raw.Database.ParseTime
	}
	if raw.DBParseTime != nil {
		cfg.ParseTime = *raw.DBParseTime
	}
	if v := strings.TrimSpace(raw.Database.Loc); v != "" {
		cfg.Loc = v
	}
	if v := strings.TrimSpace(raw.DBLoc); v != "" {
		cfg.Loc = v
	}
	if raw.Database.Params != nil {
		cfg.Params = copyStringMap(raw.Database.Params)
	}

	return normalizeDatabaseConfig(cfg)
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current

	if v := strings.TrimSpace(raw.Redis.URL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.Redis.Host); v != "" {
		cfg.Host = v
	}
	if v := strings.TrimSpace(raw.RedisHost); v != "" {
		cfg.Host = v
	}
	if raw.Redis.Port != 0 {
		cfg.Port = raw.Redis.Port
	}
	if raw.RedisPort != 0 {
		cfg.Port = raw.RedisPort
	}
	if v := strings.TrimSpace(raw.Redis.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(raw.RedisUsername); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(raw.Redis.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(raw.RedisPassword); v != "" {
		cfg.Password = v
	}
	if raw.Redis.DB != nil {
		cfg.DB = *raw.Redis.DB
	}
	if raw.RedisDB != nil {
		cfg.DB = *raw.RedisDB
	}
	if raw.Redis.TLS != nil {
		cfg.TLS = *raw.Redis.TLS
	}
	if raw.RedisTLS != nil {
		cfg.TLS = *raw.RedisTLS
	}
	if v := strings.TrimSpace(raw.Redis.Scheme); v != "" {
		cfg.Scheme = v
	}
	if raw.Redis.Params != nil {
		cfg.Params = copyStringMap(raw.Redis.Params)
	}

	return normalizeRedisConfig(cfg)
}

func normalizeDatabaseConfig(cfg DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.DBName = strings.TrimSpace(cfg.DBName)
	cfg.Charset = strings.TrimSpace(cfg.Charset)
	cfg.Loc = strings.TrimSpace(cfg.Loc)

	if cfg.User == "" && cfg.Username != "" {
		cfg.User = cfg.Username
	}
	if cfg.Name == "" && cfg.DBName != "" {
		cfg.Name = cfg.DBName
	}
	if cfg.Host == "" {
		cfg.Host = defaultDBHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultDBPort
	}
	if cfg.User == "" {
		cfg.User = defaultDBUser
	}
	if cfg.Password == "" {
		cfg.Password = defaultDBPassword
	}
	if cfg.Name == "" {
		cfg.Name = defaultDBName
	}
	if cfg.Charset == "" {
		cfg.Charset = defaultDBCharset
	}
	if cfg.Loc == "" {
		cfg.Loc = defaultDBLoc
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

func normalizeRedisConfig(cfg RedisRuntimeConfig) RedisRuntimeConfig {
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Scheme = strings.ToLower(strings.TrimSpace(cfg.Scheme))

	if cfg.Host == "" && cfg.URL == "" {
		cfg.Host = defaultRedisHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultRedisPort
	}
	if cfg.DB < 0 {
		cfg.DB = defaultRedisDB
	}
	if cfg.Scheme == "" {
		if cfg.TLS {
			cfg.Scheme = "rediss"
		} else {
			cfg.Scheme = "redis"
		}
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.URL); v != "" {
		return v
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultDBHost
	}
	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := strings.TrimSpace(c.User)
	if user == "" {
		user = strings.TrimSpace(c.Username)
	}
	if user == "" {
		user = defaultDBUser
	}
	password := strings.TrimSpace(c.Password)
	if password == "" {
		password = defaultDBPassword
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = strings.TrimSpace(c.DBName)
	}
	if name == "" {
		name = defaultDBName
	}
	charset := strings.TrimSpace(c.Charset)
	if charset == "" {
		charset = defaultDBCharset
	}
	loc := strings.TrimSpace(c.Loc)
	if loc == "" {
		loc = defaultDBLoc
	}

	params := neturl.Values{}
	for key, value := range c.Params {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			params.Set(k, v)
		}
	}
	if params.Get("charset") == "" {
		params.Set("charset", charset)
	}
	if params.Get("parseTime") == "" {
		params.Set("parseTime", strconv.FormatBool(c.ParseTime))
	}
	if params.Get("loc") == "" {
		params.Set("loc", loc)
	}

	auth := ""
	if user != "" || password != "" {
		auth = user
		if password != "" {
			auth += ":" + password
		}
		auth += "@"
	}

	dsn := fmt.Sprintf("%stcp(%s)/%s", auth, net.JoinHostPort(host, strconv.Itoa(port)), name)
	query := params.Encode()
	if query != "" {
		dsn += "?" + query
	}
	return dsn
}

func (c RedisRuntimeConfig) URLValue() string {
	if u := normalizeRedisRawURL(c.URL); u != "" {
		return u
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultRedisHost
	}
	port := c.Port
	if port == 0 {
		port = defaultRedisPort
	}
	db := c.DB
	if db < 0 {
		db = defaultRedisDB
	}

	scheme := strings.ToLower(strings.TrimSpace(c.Scheme))
	if scheme == "" {
		if c.TLS {
			scheme = "rediss"
		} else {
			scheme = "redis"
		}
	}
	if scheme != "redis" && scheme != "rediss" {
		scheme = "redis"
	}

	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + strconv.Itoa(db),
	}
	username := strings.TrimSpace(c.Username)
	password := strings.TrimSpace(c.Password)
	if username != "" {
		if password != "" {
			u.User = neturl.UserPassword(username, password)
		} else {
			u.User = neturl.User(username)
		}
	} else if password != "" {
		u.User = neturl.UserPassword("", password)
	}

	if len(c.Params) > 0 {
		query := neturl.Values{}
		for key, value := range c.Params {
			k := strings.TrimSpace(key)
			v := strings.TrimSpace(value)
			if k != "" && v != "" {
				query.Set(k, v)
			}
		}
		if len(query) > 0 {
			u.RawQuery = query.Encode()
		}
	}

	return u.String()
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func normalizeRuntimePaths(paths RuntimePathsConfig) RuntimePathsConfig {
	paths.Logs = strings.TrimSpace(paths.Logs)
	paths.Archives = strings.TrimSpace(paths.Archives)
	paths.Static = strings.TrimSpace(paths.Static)
	paths.Dashboard = strings.TrimSpace(paths.Dashboard)
	return paths
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

func (c *AppConfig) LogRotateSizeMB() (int, bool) {
	if c == nil || c.LogRotateSize == nil {
		return 0, false
	}
	return *c.LogRotateSize, true
}

func (c *AppConfig) LogRotateKeepCount() (int, bool) {
	if c == nil || c.LogRotateKeep == nil {
		return 0, false
	}
	return *c.LogRotateKeep, true
}

func (c *AppConfig) ArchiveDir() string {
	if c == nil {
		return ResolveRuntimePath("", "archives")
	}
	return ResolveRuntimePath(c.Paths.Archives, "archives")
}

func (c *AppConfig) StaticDir() string {
	if c == nil {
		return ResolveRuntimePath("", "static")
	}
	return ResolveRuntimePath(c.Paths.Static, "static")
}

// DashboardDir is where locally deployed dashboard assets live.
func (c *AppConfig) DashboardDir() string {
	if c == nil {
		return ResolveRuntimePath("", "dashboard")
	}
	return ResolveRuntimePath(c.Paths.Dashboard, "dashboard")
}

// FullConfig is the application config stored in the database (options table, key="configs").
// Runtime infrastructure stays in AppConfig; everything an owner can change
// from the dashboard without a restart lives here.
type FullConfig struct {
	Extension      ExtensionOptions `json:"extension"`
	URL            URLConfig        `json:"url"`
	MailOptions    MailOptions      `json:"mail_options"`
	AnalysisOpts   AnalysisOptions  `json:"analysis_options"`
	AlertOptions   AlertOptions     `json:"alert_options"`
	ArchiveOptions ArchiveOptions   `json:"archive_options"`
	S3Options      S3Options        `json:"s3_options"`
	BarkOptions    BarkOptions      `json:"bark_options"`
	AuthSecurity   AuthSecurity     `json:"auth_security"`
	FeatureList    FeatureList      `json:"feature_list"`
	AI             AIConfig         `json:"ai"`
}

// ExtensionOptions controls what the browser extension shows about this deployment.
type ExtensionOptions struct {
	ProductName      string `json:"product_name"`
	Announcement     string `json:"announcement"`
	MinClientVersion string `json:"min_client_version"`
}

type URLConfig struct {
	WebURL    string `json:"web_url"`
	ServerURL string `json:"server_url"`
	WSURL     string `json:"ws_url"`
}

type MailOptions struct {
	Enable   bool          `json:"enable"`
	Provider string        `json:"provider"`
	From     string        `json:"from"`
	SMTP     *SMTPConfig   `json:"smtp"`
	Resend   *ResendConfig `json:"resend"`
}

type SMTPOptions struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"secure"`
}

type SMTPConfig struct {
	User    string      `json:"user"`
	Pass    string      `json:"pass"`
	Options SMTPOptions `json:"options"`
}

func (s SMTPConfig) MarshalJSON() ([]byte, error) {
	host := strings.TrimSpace(s.Options.Host)
	port := s.Options.Port
	if port == 0 {
		port = 465
	}
	secure := s.Options.Secure

	return json.Marshal(struct {
		User    string      `json:"user"`
		Pass    string      `json:"pass"`
		Host    string      `json:"host"`
		Port    int         `json:"port"`
		Secure  bool        `json:"secure"`
		Options SMTPOptions `json:"options"`
	}{
		User:   strings.TrimSpace(s.User),
		Pass:   s.Pass,
		Host:   host,
		Port:   port,
		Secure: secure,
		Options: SMTPOptions{
			Host:   host,
			Port:   port,
			Secure: secure,
		},
	})
}

func (s *SMTPConfig) UnmarshalJSON(data []byte) error {
	next := *s
	if next.Options.Port == 0 {
		next.Options.Port = 465
	}

	var raw struct {
		User    string `json:"user"`
		Pass    string `json:"pass"`
		Options *struct {
			Host   string `json:"host"`
			Port   int    `json:"port"`
			Secure *bool  `json:"secure"`
		} `json:"options"`
		Host   string `json:"host"`
		Port   int    `json:"port"`
		Secure *bool  `json:"secure"`
		Auth   *struct {
			User string `json:"user"`
			Pass string `json:"pass"`
		} `json:"auth"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.User != "" {
		next.User = strings.TrimSpace(raw.User)
	}
	if raw.Pass != "" {
		next.Pass = raw.Pass
	}
	if raw.Auth != nil {
		if next.User == "" {
			next.User = strings.TrimSpace(raw.Auth.User)
		}
		if next.Pass == "" {
			next.Pass = raw.Auth.Pass
		}
	}

	if raw.Options != nil {
		next.Options.Host = strings.TrimSpace(raw.Options.Host)
		if raw.Options.Port != 0 {
			next.Options.Port = raw.Options.Port
		}
		if raw.Options.Secure != nil {
			next.Options.Secure = *raw.Options.Secure
		}
	} else {
		if strings.TrimSpace(raw.Host) != "" {
			next.Options.Host = strings.TrimSpace(raw.Host)
		}
		if raw.Port != 0 {
			next.Options.Port = raw.Port
		}
		if raw.Secure != nil {
			next.Options.Secure = *raw.Secure
		}
	}

	if next.Options.Port == 0 {
		next.Options.Port = 465
	}
	*s = next
	return nil
}

type ResendConfig struct {
	APIKey string `json:"api_key"`
}

// AnalysisOptions bounds what one analysis run may cost.
type AnalysisOptions struct {
	DefaultPasses      int  `json:"default_passes"`
	MaxPasses          int  `json:"max_passes"`
	PassTimeoutSeconds int  `json:"pass_timeout_seconds"`
	MaxDocumentKB      int  `json:"max_document_kb"`
	ReuseCachedResults bool `json:"reuse_cached_results"`
	AutoReanalyze      bool `json:"auto_reanalyze"`
}

func (o *AnalysisOptions) UnmarshalJSON(data []byte) error {
	next := *o
	var raw struct {
		DefaultPasses      *int  `json:"default_passes"`
		MaxPasses          *int  `json:"max_passes"`
		PassTimeoutSeconds *int  `json:"pass_timeout_seconds"`
		PassTimeout        *int  `json:"pass_timeout"`
		MaxDocumentKB      *int  `json:"max_document_kb"`
		MaxDocumentSize    *int  `json:"max_document_size"`
		ReuseCachedResults *bool `json:"reuse_cached_results"`
		AutoReanalyze      *bool `json:"auto_reanalyze"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.DefaultPasses != nil {
		next.DefaultPasses = *raw.DefaultPasses
	}
	if raw.MaxPasses != nil {
		next.MaxPasses = *raw.MaxPasses
	}
	if raw.PassTimeoutSeconds != nil {
		next.PassTimeoutSeconds = *raw.PassTimeoutSeconds
	} else if raw.PassTimeout != nil {
		next.PassTimeoutSeconds = *raw.PassTimeout
	}
	if raw.MaxDocumentKB != nil {
		next.MaxDocumentKB = *raw.MaxDocumentKB
	} else if raw.MaxDocumentSize != nil {
		next.MaxDocumentKB = *raw.MaxDocumentSize
	}
	if raw.ReuseCachedResults != nil {
		next.ReuseCachedResults = *raw.ReuseCachedResults
	}
	if raw.AutoReanalyze != nil {
		next.AutoReanalyze = *raw.AutoReanalyze
	}

	*o = next
	return nil
}

// AlertOptions controls delivery of risk alerts outside the extension itself.
type AlertOptions struct {
	EnableMail      bool   `json:"enable_mail"`
	EnableBark      bool   `json:"enable_bark"`
	EnableSocket    bool   `json:"enable_socket"`
	DigestHour      int    `json:"digest_hour"`
	QuietHoursStart string `json:"quiet_hours_start"`
	QuietHoursEnd   string `json:"quiet_hours_end"`
	MaxPerDay       int    `json:"max_per_day"`
}

type ArchiveOptions struct {
	Enable    bool   `json:"enable"`
	Path      string `json:"path"`
	KeepCount int    `json:"keep_count"`
}

type S3Options struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	CustomDomain    string `json:"custom_domain"`
	PathStyleAccess bool   `json:"path_style_access"`
}

type BarkOptions struct {
	Enable              bool   `json:"enable"`
	Key                 string `json:"key"`
	ServerURL           string `json:"server_url"`
	EnableAlert         bool   `json:"enable_alert"`
	EnableThrottleGuard bool   `json:"enable_throttle_guard"`
}

type AuthSecurity struct {
	DisablePasswordLogin bool               `json:"disable_password_login"`
	SessionTTLHours      int                `json:"session_ttl_hours"`
	Credential           []CredentialSource `json:"credential_sources"`
	Passkey              PasskeyOptions     `json:"passkey"`
}

// CredentialSource configures one external credential verifier.
type CredentialSource struct {
	Type      string `json:"type"` // firebase | supabase
	Enabled   bool   `json:"enabled"`
	ProjectID string `json:"project_id,omitempty"` // firebase
	URL       string `json:"url,omitempty"`        // supabase project URL
	JWTSecret string `json:"jwt_secret,omitempty"` // supabase
}

type PasskeyOptions struct {
	RPID          string   `json:"rp_id"`
	RPDisplayName string   `json:"rp_display_name"`
	RPOrigins     []string `json:"rp_origins"`
}

type FeatureList struct {
	DailyDigest bool `json:"daily_digest"`
	CustomRules bool `json:"custom_rules"`
}

func (o *FeatureList) UnmarshalJSON(data []byte) error {
	next := *o
	var raw struct {
		DailyDigest *bool `json:"daily_digest"`
		EmailDigest *bool `json:"email_digest"`
		CustomRules *bool `json:"custom_rules"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.DailyDigest != nil {
		next.DailyDigest = *raw.DailyDigest
	} else if raw.EmailDigest != nil {
		next.DailyDigest = *raw.EmailDigest
	}
	if raw.CustomRules != nil {
		next.CustomRules = *raw.CustomRules
	}

	*o = next
	return nil
}

type AIConfig struct {
	Providers            []AIProvider       `json:"providers"`
	AnalysisModel        *AIModelAssignment `json:"analysis_model,omitempty"`
	ReportModel          *AIModelAssignment `json:"report_model,omitempty"`
	EnableReports        bool               `json:"enable_reports"`
	ReportTargetLanguage string             `json:"report_target_language"`
}

type AIModelAssignment struct {
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`
}

func (a *AIModelAssignment) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProviderID      string `json:"provider_id"`
		ProviderIDCamel string `json:"providerId"`
		Model           string `json:"model"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.ProviderID = strings.TrimSpace(raw.ProviderID)
	if a.ProviderID == "" {
		a.ProviderID = strings.TrimSpace(raw.ProviderIDCamel)
	}
	a.Model = strings.TrimSpace(raw.Model)
	return nil
}

func (a *AIConfig) UnmarshalJSON(data []byte) error {
	next := *a
	var raw struct {
		Providers            []AIProvider    `json:"providers"`
		AnalysisModel        json.RawMessage `json:"analysis_model"`
		ReportModel          json.RawMessage `json:"report_model"`
		EnableReports        *bool           `json:"enable_reports"`
		ReportTargetLanguage *string         `json:"report_target_language"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Providers != nil {
		next.Providers = raw.Providers
	}
	if raw.EnableReports != nil {
		next.EnableReports = *raw.EnableReports
	}
	if raw.ReportTargetLanguage != nil {
		next.ReportTargetLanguage = *raw.ReportTargetLanguage
	}

	var err error
	if len(raw.AnalysisModel) > 0 {
		next.AnalysisModel, err = parseAIModelAssignment(raw.AnalysisModel, next.AnalysisModel)
		if err != nil {
			return err
		}
	}
	if len(raw.ReportModel) > 0 {
		next.ReportModel, err = parseAIModelAssignment(raw.ReportModel, next.ReportModel)
		if err != nil {
			return err
		}
	}

	*a = next
	return nil
}

func parseAIModelAssignment(raw json.RawMessage, fallback *AIModelAssignment) (*AIModelAssignment, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return fallback, nil
	}
	if trimmed == "null" {
		return nil, nil
	}

	var legacyModel string
	if err := json.Unmarshal(raw, &legacyModel); err == nil {
		legacyModel = strings.TrimSpace(legacyModel)
		if legacyModel == "" {
			return nil, nil
		}
		next := &AIModelAssignment{}
		if fallback != nil {
			*next = *fallback
		}
		next.Model = legacyModel
		return next, nil
	}

	next := &AIModelAssignment{}
	if fallback != nil {
		*next = *fallback
	}
	if err := json.Unmarshal(raw, next); err != nil {
		return nil, err
	}
	if strings.TrimSpace(next.ProviderID) == "" && strings.TrimSpace(next.Model) == "" {
		return nil, nil
	}
	return next, nil
}

type AIProvider struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"` // OpenAI | OpenAI-Compatible | Anthropic | OpenRouter
	APIKey       string `json:"api_key"`
	Endpoint     string `json:"endpoint,omitempty"`
	DefaultModel string `json:"default_model"`
	Enabled      bool   `json:"enabled"`
}

// DefaultFullConfig returns the defaults a fresh deployment starts with.
func DefaultFullConfig() FullConfig {
	return FullConfig{
		Extension: ExtensionOptions{
			ProductName:      "ClauseLens",
			Announcement:     "",
			MinClientVersion: "",
		},
		URL: URLConfig{
			WSURL:     "http://localhost:3330",
			ServerURL: "http://localhost:3330",
			WebURL:    "http://localhost:3320",
		},
		MailOptions: MailOptions{
			Enable:   false,
			Provider: "smtp",
			From:     "",
			SMTP: &SMTPConfig{
				User: "",
				Pass: "",
				Options: SMTPOptions{
					Host:   "",
					Port:   465,
					Secure: true,
				},
			},
			Resend: &ResendConfig{
				APIKey: "",
			},
		},
		AnalysisOpts: AnalysisOptions{
			DefaultPasses:      3,
			MaxPasses:          5,
			PassTimeoutSeconds: 90,
			MaxDocumentKB:      512,
			ReuseCachedResults: true,
			AutoReanalyze:      false,
		},
		AlertOptions: AlertOptions{
			EnableMail:      false,
			EnableBark:      false,
			EnableSocket:    true,
			DigestHour:      8,
			QuietHoursStart: "",
			QuietHoursEnd:   "",
			MaxPerDay:       20,
		},
		ArchiveOptions: ArchiveOptions{
			Enable:    false,
			Path:      "archives/{Y}/{m}/archive-{Y}{m}{d}-{h}{i}{s}.zip",
			KeepCount: 12,
		},
		S3Options: S3Options{
			Endpoint:        "",
			AccessKeyID:     "",
			SecretAccessKey: "",
			Bucket:          "",
			Region:          "",
			CustomDomain:    "",
			PathStyleAccess: false,
		},
		BarkOptions: BarkOptions{
			Enable:              false,
			Key:                 "",
			ServerURL:           "https://api.day.app",
			EnableAlert:         true,
			EnableThrottleGuard: false,
		},
		AuthSecurity: AuthSecurity{
			DisablePasswordLogin: false,
			SessionTTLHours:      24 * 14,
			Credential:           []CredentialSource{},
			Passkey: PasskeyOptions{
				RPID:          "localhost",
				RPDisplayName: "ClauseLens",
				RPOrigins:     []string{"http://localhost:3320"},
			},
		},
		FeatureList: FeatureList{
			DailyDigest: false,
			CustomRules: true,
		},
		AI: AIConfig{
			Providers:            []AIProvider{},
			EnableReports:        true,
			ReportTargetLanguage: "auto",
		},
	}
}
