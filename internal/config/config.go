package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "NEWSDESK_CONFIG"
	newsAPIKeyEnv      = "NEWS_API_KEY"
	llmKeyEnv          = "EMERGENT_LLM_KEY"
	llmKeyAltEnv       = "LLM_API_KEY"
	llmModelEnv        = "AI_MODEL"
	llmProviderEnv     = "LLM_PROVIDER"
	intervalHoursEnv   = "FETCH_INTERVAL_HOURS"
	mongoURLEnv        = "MONGO_URL"
	dbNameEnv          = "DB_NAME"
	storageDriverEnv   = "STORAGE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	redisAddrEnv       = "REDIS_ADDR"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	httpAddrEnv        = "HTTP_ADDR"
	logLevelEnv        = "LOG_LEVEL"
	logFormatEnv       = "LOG_FORMAT"
	defaultIntervalHrs = 6
)

const (
	DriverMongo    = "mongodb"
	DriverPostgres = "postgres"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	StrategyKeyword  = "keyword"
	StrategyDistrict = "district"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	NewsAPI       NewsAPIConfig      `yaml:"newsapi"`
	LLM           LLMConfig          `yaml:"llm"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Notifications NotificationConfig `yaml:"notifications"`
	HTTP          HTTPConfig         `yaml:"http"`
	Categories    []CategoryConfig   `yaml:"categories"`
	Districts     []DistrictConfig   `yaml:"districts"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the document store connection.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	MongoURI string `yaml:"mongoUri"`
	Name     string `yaml:"name"`
	DSN      string `yaml:"dsn"`
}

// RedisConfig enables the cross-process run lock when Address is set.
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockKey  string        `yaml:"lockKey"`
	LockTTL  time.Duration `yaml:"lockTtl"`
}

// SchedulerConfig defines how often the pipeline runs.
type SchedulerConfig struct {
	IntervalHours int           `yaml:"intervalHours"`
	RunTimeout    time.Duration `yaml:"runTimeout"`
}

// Interval converts IntervalHours to a duration.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalHours <= 0 {
		return defaultIntervalHrs * time.Hour
	}
	return time.Duration(s.IntervalHours) * time.Hour
}

// NewsAPIConfig points at the article-search service.
type NewsAPIConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Language string        `yaml:"language"`
	SortBy   string        `yaml:"sortBy"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LLMConfig defines how to contact the chat service.
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	Endpoint       string        `yaml:"endpoint"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"apiKey"`
	OutputLanguage string        `yaml:"outputLanguage"`
	MaxTokens      int64         `yaml:"maxTokens"`
	Timeout        time.Duration `yaml:"timeout"`
}

// PipelineConfig holds per-run knobs.
type PipelineConfig struct {
	Author           string        `yaml:"author"`
	PlaceholderImage string        `yaml:"placeholderImage"`
	RewriteInterval  time.Duration `yaml:"rewriteInterval"`
	StaleJobAfter    time.Duration `yaml:"staleJobAfter"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// HTTPConfig configures the read API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// CategoryConfig describes one topical bucket and how to search for it.
type CategoryConfig struct {
	Name       string   `yaml:"name"`
	Slug       string   `yaml:"slug"`
	Query      string   `yaml:"query"`
	Priority   int      `yaml:"priority"`
	Limit      int      `yaml:"limit"`
	Strategy   string   `yaml:"strategy"`
	WindowDays int      `yaml:"windowDays"`
	Terms      []string `yaml:"terms"`
	MaxTerms   int      `yaml:"maxTerms"`
	Local      bool     `yaml:"local"`
}

// DistrictConfig maps a district label to its spelling variants.
type DistrictConfig struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// LocalCategory returns the distinguished local/regional category, if configured.
func (c Config) LocalCategory() (CategoryConfig, bool) {
	for _, cat := range c.Categories {
		if cat.Local {
			return cat, true
		}
	}
	return CategoryConfig{}, false
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom is Load with an explicit YAML path; an empty path skips the file.
func LoadFrom(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg, err := Parse(raw)
			if err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// Validate reports settings that make the service unusable.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.MongoURI == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("database: mongodb requires uri and name"))
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database: postgres requires dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("database: unsupported driver %q", c.Database.Driver))
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("llm: unsupported provider %q", c.LLM.Provider))
	}

	if len(c.Categories) == 0 {
		errs = append(errs, errors.New("categories: at least one category is required"))
	}
	for _, cat := range c.Categories {
		if cat.Priority < 1 || cat.Priority > 10 {
			errs = append(errs, fmt.Errorf("category %s: priority %d out of range 1-10", cat.Name, cat.Priority))
		}
		switch cat.Strategy {
		case "", StrategyKeyword, StrategyDistrict:
		default:
			errs = append(errs, fmt.Errorf("category %s: unknown strategy %q", cat.Name, cat.Strategy))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	setString(&c.NewsAPI.APIKey, newsAPIKeyEnv)
	setString(&c.LLM.APIKey, llmKeyAltEnv)
	setString(&c.LLM.APIKey, llmKeyEnv)
	setString(&c.LLM.Model, llmModelEnv)
	setString(&c.LLM.Provider, llmProviderEnv)
	setString(&c.Database.MongoURI, mongoURLEnv)
	setString(&c.Database.Name, dbNameEnv)
	setString(&c.Database.Driver, storageDriverEnv)
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Redis.Address, redisAddrEnv)
	setString(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)
	setString(&c.HTTP.Addr, httpAddrEnv)
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Logging.Format, logFormatEnv)

	if v := os.Getenv(intervalHoursEnv); v != "" {
		if hours, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && hours > 0 {
			c.Scheduler.IntervalHours = hours
		} else {
			log.Printf("config: ignoring invalid %s=%q", intervalHoursEnv, v)
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.Logging.Level, override.Logging.Level)
	mergeString(&base.Logging.Format, override.Logging.Format)

	mergeString(&base.Database.Driver, override.Database.Driver)
	mergeString(&base.Database.MongoURI, override.Database.MongoURI)
	mergeString(&base.Database.Name, override.Database.Name)
	mergeString(&base.Database.DSN, override.Database.DSN)

	mergeString(&base.Redis.Address, override.Redis.Address)
	mergeString(&base.Redis.Password, override.Redis.Password)
	mergeString(&base.Redis.LockKey, override.Redis.LockKey)
	if override.Redis.DB != 0 {
		base.Redis.DB = override.Redis.DB
	}
	if override.Redis.LockTTL > 0 {
		base.Redis.LockTTL = override.Redis.LockTTL
	}

	if override.Scheduler.IntervalHours > 0 {
		base.Scheduler.IntervalHours = override.Scheduler.IntervalHours
	}
	if override.Scheduler.RunTimeout > 0 {
		base.Scheduler.RunTimeout = override.Scheduler.RunTimeout
	}

	mergeString(&base.NewsAPI.Endpoint, override.NewsAPI.Endpoint)
	mergeString(&base.NewsAPI.APIKey, override.NewsAPI.APIKey)
	mergeString(&base.NewsAPI.Language, override.NewsAPI.Language)
	mergeString(&base.NewsAPI.SortBy, override.NewsAPI.SortBy)
	if override.NewsAPI.Timeout > 0 {
		base.NewsAPI.Timeout = override.NewsAPI.Timeout
	}

	mergeString(&base.LLM.Provider, override.LLM.Provider)
	mergeString(&base.LLM.Endpoint, override.LLM.Endpoint)
	mergeString(&base.LLM.Model, override.LLM.Model)
	mergeString(&base.LLM.APIKey, override.LLM.APIKey)
	mergeString(&base.LLM.OutputLanguage, override.LLM.OutputLanguage)
	if override.LLM.MaxTokens > 0 {
		base.LLM.MaxTokens = override.LLM.MaxTokens
	}
	if override.LLM.Timeout > 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}

	mergeString(&base.Pipeline.Author, override.Pipeline.Author)
	mergeString(&base.Pipeline.PlaceholderImage, override.Pipeline.PlaceholderImage)
	if override.Pipeline.RewriteInterval > 0 {
		base.Pipeline.RewriteInterval = override.Pipeline.RewriteInterval
	}
	if override.Pipeline.StaleJobAfter > 0 {
		base.Pipeline.StaleJobAfter = override.Pipeline.StaleJobAfter
	}

	mergeString(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	mergeString(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)

	mergeString(&base.HTTP.Addr, override.HTTP.Addr)

	if len(override.Categories) > 0 {
		base.Categories = override.Categories
	}
	if len(override.Districts) > 0 {
		base.Districts = override.Districts
	}

	return base
}

func mergeString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{
			Driver:   DriverMongo,
			MongoURI: "mongodb://localhost:27017",
			Name:     "newsdesk",
		},
		Redis: RedisConfig{LockKey: "newsdesk:pipeline:run", LockTTL: 3 * time.Hour},
		Scheduler: SchedulerConfig{
			IntervalHours: defaultIntervalHrs,
			RunTimeout:    2 * time.Hour,
		},
		NewsAPI: NewsAPIConfig{
			Endpoint: "https://newsapi.org/v2/everything",
			Language: "en",
			SortBy:   "publishedAt",
			Timeout:  20 * time.Second,
		},
		LLM: LLMConfig{
			Provider:       ProviderOpenAI,
			Model:          "gpt-4o-mini",
			OutputLanguage: "Hindi",
			MaxTokens:      2048,
			Timeout:        60 * time.Second,
		},
		Pipeline: PipelineConfig{
			Author:           "महादेश न्यूज़ डेस्क",
			PlaceholderImage: "https://images.unsplash.com/photo-1504711434969-e33886168f5c?w=800",
			RewriteInterval:  time.Second,
			StaleJobAfter:    4 * time.Hour,
		},
		HTTP:       HTTPConfig{Addr: ":8001"},
		Categories: defaultCategories(),
		Districts:  defaultDistricts(),
	}
}

func defaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{
			Name:       "स्थानीय",
			Slug:       "local",
			Query:      "jalna OR aurangabad OR marathwada OR जालना OR औरंगाबाद OR मराठवाड़ा",
			Priority:   10,
			Limit:      10,
			Strategy:   StrategyDistrict,
			WindowDays: 1,
			Terms:      []string{"jalna", "aurangabad", "marathwada", "जालना", "औरंगाबाद", "मराठवाड़ा"},
			MaxTerms:   3,
			Local:      true,
		},
		{
			Name:       "सरकारी योजना",
			Slug:       "government-schemes",
			Query:      "सरकारी योजना OR government scheme OR महाराष्ट्र सरकार OR central scheme",
			Priority:   10,
			Limit:      15,
			Strategy:   StrategyKeyword,
			WindowDays: 2,
		},
		{
			Name:       "अपराध",
			Slug:       "crime",
			Query:      "crime OR murder OR अपराध OR हत्या OR गिरफ्तार",
			Priority:   10,
			Limit:      15,
			Strategy:   StrategyKeyword,
			WindowDays: 2,
		},
		{
			Name:       "सड़क हादसा",
			Slug:       "road-accidents",
			Query:      "road accident OR दुर्घटना OR हादसा OR accident",
			Priority:   10,
			Limit:      10,
			Strategy:   StrategyKeyword,
			WindowDays: 2,
		},
		{
			Name:       "राजनीति",
			Slug:       "politics",
			Query:      "maharashtra politics OR महाराष्ट्र राजनीति OR विधानसभा",
			Priority:   7,
			Limit:      8,
			Strategy:   StrategyKeyword,
			WindowDays: 2,
		},
		{
			Name:       "मनोरंजन",
			Slug:       "entertainment",
			Query:      "bollywood OR entertainment OR मनोरंजन OR फिल्म",
			Priority:   5,
			Limit:      5,
			Strategy:   StrategyKeyword,
			WindowDays: 2,
		},
		{
			Name:       "खेल",
			Slug:       "sports",
			Query:      "sports OR cricket OR खेल OR भारतीय टीम",
			Priority:   5,
			Limit:      5,
			Strategy:   StrategyKeyword,
			WindowDays: 2,
		},
	}
}

func defaultDistricts() []DistrictConfig {
	return []DistrictConfig{
		{Name: "जालना", Keywords: []string{"jalna", "जालना", "जलना"}},
		{Name: "औरंगाबाद", Keywords: []string{"aurangabad", "औरंगाबाद", "sambhajinagar", "संभाजीनगर"}},
		{Name: "मराठवाड़ा", Keywords: []string{"marathwada", "मराठवाड़ा"}},
		{Name: "परभणी", Keywords: []string{"parbhani", "परभणी"}},
	}
}
