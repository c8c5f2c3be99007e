package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Recording providers for externally hosted recording assets.
const (
	ProviderYouTube = "youtube"
	ProviderS3      = "s3"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	AWS         AWSConfig
	Jitsi       JitsiConfig
	GoogleOAuth GoogleOAuthConfig
	Recording   RecordingConfig
	SMTP        SMTPConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	PublicURL          string // base URL used for return links, e.g. https://courses.example.com
	RateLimitPerMinute int    // per client IP on login and guest link routes
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// JWTConfig holds platform login token settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int

	// ManagerEmails register as managers; everyone else registers as a student.
	ManagerEmails []string
}

// AWSConfig holds AWS credentials and the recordings bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	RecordingsBucket     string
	PresignExpireMinutes int
}

// JitsiConfig is the site-wide conferencing configuration. It is passed
// explicitly into the embed builder instead of being read from globals.
type JitsiConfig struct {
	Domain           string
	AppID            string
	Secret           string
	SiteName         string
	WatermarkLink    string
	Password         string
	ChannelLastCam   int
	DeepLink         bool
	Reactions        bool
	LiveButton       bool
	StreamingOption  int // 0: widget-native live streaming button, 1: record & streaming switch
	ShareYouTube     bool
	BlurButton       bool
	SecurityButton   bool
	Record           bool
	ParticipantsPane bool
	FinishAndReturn  bool
	InviteButtons    bool
	PrivateSessions  bool
}

// Authenticated reports whether rooms are protected by a signed token.
func (c JitsiConfig) Authenticated() bool {
	return c.AppID != "" && c.Secret != ""
}

// GoogleOAuthConfig holds the OAuth client used to refresh service account tokens.
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
}

// RecordingConfig selects where recording assets live.
type RecordingConfig struct {
	Provider string // youtube or s3
}

// SMTPConfig holds the mail relay for notification emails. Email copies are
// skipped when Addr is empty.
type SMTPConfig struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			PublicURL:          strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
			RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "coursemeet"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 0),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours:   getEnvInt("JWT_EXPIRE_HOURS", 24),
			ManagerEmails: getEnvList("MANAGER_EMAILS"),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			RecordingsBucket:     getEnv("AWS_S3_RECORDINGS_BUCKET", "coursemeet-recordings"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Jitsi: JitsiConfig{
			Domain:           getEnv("JITSI_DOMAIN", "meet.jit.si"),
			AppID:            getEnv("JITSI_APP_ID", ""),
			Secret:           getEnv("JITSI_SECRET", ""),
			SiteName:         getEnv("JITSI_SITE_NAME", "coursemeet"),
			WatermarkLink:    getEnv("JITSI_WATERMARK_LINK", "https://jitsi.org"),
			Password:         getEnv("JITSI_PASSWORD", ""),
			ChannelLastCam:   getEnvInt("JITSI_CHANNEL_LAST_CAM", -1),
			DeepLink:         getEnvBool("JITSI_DEEPLINK", true),
			Reactions:        getEnvBool("JITSI_REACTIONS", true),
			LiveButton:       getEnvBool("JITSI_LIVE_BUTTON", false),
			StreamingOption:  getEnvInt("JITSI_STREAMING_OPTION", 0),
			ShareYouTube:     getEnvBool("JITSI_SHARE_YOUTUBE", false),
			BlurButton:       getEnvBool("JITSI_BLUR_BUTTON", false),
			SecurityButton:   getEnvBool("JITSI_SECURITY_BUTTON", false),
			Record:           getEnvBool("JITSI_RECORD", false),
			ParticipantsPane: getEnvBool("JITSI_PARTICIPANTS_PANE", false),
			FinishAndReturn:  getEnvBool("JITSI_FINISH_AND_RETURN", false),
			InviteButtons:    getEnvBool("JITSI_INVITE_BUTTONS", false),
			PrivateSessions:  getEnvBool("JITSI_PRIVATE_SESSIONS", false),
		},
		GoogleOAuth: GoogleOAuthConfig{
			ClientID:     getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
		},
		Recording: RecordingConfig{
			Provider: strings.ToLower(getEnv("RECORDING_PROVIDER", ProviderYouTube)),
		},
		SMTP: SMTPConfig{
			Addr:     getEnv("SMTP_ADDR", ""),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@coursemeet.local"),
		},
	}
	if cfg.Recording.Provider != ProviderYouTube && cfg.Recording.Provider != ProviderS3 {
		return nil, fmt.Errorf("unknown RECORDING_PROVIDER %q", cfg.Recording.Provider)
	}
	if cfg.Jitsi.StreamingOption != 0 && cfg.Jitsi.StreamingOption != 1 {
		return nil, fmt.Errorf("JITSI_STREAMING_OPTION must be 0 or 1, got %d", cfg.Jitsi.StreamingOption)
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvBool accepts 1/0 as well as anything strconv.ParseBool understands.
func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
