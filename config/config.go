package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"AttendBot/internal/clock"
	"AttendBot/internal/policy"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"attendbot"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"attendbot"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"10"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"50"`
	// 只读副本，报表查询走这里；为空时不启用读写分离
	PostgreSQLReplicaDSN string `env:"POSTGRESQL_REPLICA_DSN"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"attend"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪与指标，endpoint 为空时不启用
	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPSampler  float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"` // 每秒请求数

	// 考勤制度
	AttendanceTimezone  string        `env:"ATTENDANCE_TIMEZONE" envDefault:"Asia/Ho_Chi_Minh"`
	CheckInOpen         string        `env:"CHECKIN_OPEN" envDefault:"08:00"`
	CheckInClose        string        `env:"CHECKIN_CLOSE" envDefault:"11:00"`
	StandardEndOfDay    string        `env:"STANDARD_END_OF_DAY" envDefault:"17:00"`
	WorkdayDuration     time.Duration `env:"WORKDAY_DURATION" envDefault:"9h"`
	FullDayThreshold    time.Duration `env:"FULL_DAY_THRESHOLD" envDefault:"9h"`
	PreCompletionOffset time.Duration `env:"PRE_COMPLETION_OFFSET" envDefault:"10m"`
	AdvanceNoticeOffset time.Duration `env:"ADVANCE_NOTICE_OFFSET" envDefault:"0s"` // 0 表示关闭

	// 提醒轮询
	ReminderTolerance    time.Duration `env:"REMINDER_TOLERANCE" envDefault:"2m"`
	ReminderPollInterval time.Duration `env:"REMINDER_POLL_INTERVAL" envDefault:"1m"`
	ReminderConcurrency  int           `env:"REMINDER_CONCURRENCY" envDefault:"16"`
	MidnightSweepAt      string        `env:"MIDNIGHT_SWEEP_AT" envDefault:"00:05"`

	// 启动时写入的节假日，格式 YYYY-MM-DD:名称，逗号分隔
	Holidays []string `env:"HOLIDAYS" envSeparator:","`

	// 记录锁
	LockTTL  time.Duration `env:"LOCK_TTL" envDefault:"5s"`
	LockWait time.Duration `env:"LOCK_WAIT" envDefault:"3s"`
}

func init() {

	if err := godotenv.Load(); err != nil {

		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}
}

// Validate 校验考勤相关配置，进程启动时调用
func (c *Config) Validate() error {
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := clock.ParseTimeOfDay(c.MidnightSweepAt); err != nil {
		return fmt.Errorf("MIDNIGHT_SWEEP_AT: %w", err)
	}
	if c.ReminderPollInterval <= 0 {
		return fmt.Errorf("REMINDER_POLL_INTERVAL must be positive")
	}
	// 轮询间隔不短于 2 倍容差时，落在两次轮询之间的检查点可能被整个跳过
	if c.ReminderPollInterval >= 2*c.ReminderTolerance {
		return fmt.Errorf("REMINDER_POLL_INTERVAL (%s) must be shorter than 2 x REMINDER_TOLERANCE (%s)",
			c.ReminderPollInterval, c.ReminderTolerance)
	}
	if c.ReminderConcurrency <= 0 {
		return fmt.Errorf("REMINDER_CONCURRENCY must be positive")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	return nil
}

// Policy 由配置构造考勤制度
func (c *Config) Policy() (policy.Policy, error) {
	zone, err := clock.LoadZone(c.AttendanceTimezone)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("ATTENDANCE_TIMEZONE: %w", err)
	}

	p := policy.Default(zone)
	if p.CheckInOpen, err = clock.ParseTimeOfDay(c.CheckInOpen); err != nil {
		return policy.Policy{}, fmt.Errorf("CHECKIN_OPEN: %w", err)
	}
	if p.CheckInClose, err = clock.ParseTimeOfDay(c.CheckInClose); err != nil {
		return policy.Policy{}, fmt.Errorf("CHECKIN_CLOSE: %w", err)
	}
	if p.StandardEndOfDay, err = clock.ParseTimeOfDay(c.StandardEndOfDay); err != nil {
		return policy.Policy{}, fmt.Errorf("STANDARD_END_OF_DAY: %w", err)
	}
	p.WorkdayDuration = c.WorkdayDuration
	p.FullDayThreshold = c.FullDayThreshold
	p.PreCompletionOffset = c.PreCompletionOffset
	p.AdvanceNoticeOffset = c.AdvanceNoticeOffset
	p.ReminderTolerance = c.ReminderTolerance

	if err := p.Validate(); err != nil {
		return policy.Policy{}, err
	}
	return p, nil
}

// SweepTime 零点清扫的本地时刻
func (c *Config) SweepTime() clock.TimeOfDay {
	tod, err := clock.ParseTimeOfDay(c.MidnightSweepAt)
	if err != nil {
		return clock.TimeOfDay{Hour: 0, Minute: 5}
	}
	return tod
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
