package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	ReferenceTZ string `envconfig:"REFERENCE_TZ" default:"America/Vancouver"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Queues struct {
		Backend     string `envconfig:"QUEUE_BACKEND" default:"redis"`
		RabbitMQURL string `envconfig:"RABBITMQ_URL"`
		ReportKey   string `envconfig:"REPORT_QUEUE_KEY" default:"report_jobs"`
	} `envconfig:""`

	Report struct {
		TriggerDay   string        `envconfig:"REPORT_TRIGGER_DAY" default:"friday"`
		TriggerTime  string        `envconfig:"REPORT_TRIGGER_TIME" default:"12:00"`
		PollInterval time.Duration `envconfig:"REPORT_POLL_INTERVAL" default:"60s"`
		UseAI        bool          `envconfig:"REPORT_USE_AI" default:"true"`
		MemberKey    string        `envconfig:"REPORT_MEMBER_KEY" default:"name_role"`
	} `envconfig:""`

	OpenAI struct {
		APIKey    string        `envconfig:"OPENAI_API_KEY"`
		BaseURL   string        `envconfig:"OPENAI_BASE_URL"`
		Model     string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		Timeout   time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
		MaxTokens int           `envconfig:"OPENAI_MAX_TOKENS" default:"4000"`
	} `envconfig:""`

	Telegram struct {
		Token        string `envconfig:"TG_BOT_TOKEN"`
		ReportChatID int64  `envconfig:"TG_REPORT_CHAT_ID"`
	} `envconfig:""`
}

// QueueBackendRabbit выбирает RabbitMQ в качестве очереди задач.
const QueueBackendRabbit = "rabbitmq"

// Parse читает конфиг из окружения и возвращает ошибку вместо завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// AIEnabled сообщает, настроен ли доступ к LLM.
func (c AppConfig) AIEnabled() bool {
	return c.OpenAI.APIKey != ""
}

// NotifierEnabled сообщает, настроена ли отправка отчётов в Telegram.
func (c AppConfig) NotifierEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ReportChatID != 0
}
