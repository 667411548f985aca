package global

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const insecureDefaultJWTSecret = "dev-only-change-me"

// Config 网关全部配置，从环境变量读取。
type Config struct {
	GatewayID string
	Server    ServerConfig
	JWT       JWTConfig
	WS        WSConfig
	Limits    LimitConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Nats      NatsConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type JWTConfig struct {
	SecretKey string
}

// WSConfig 连接生命周期参数
type WSConfig struct {
	AllowedOrigins []string      // 空列表放行所有来源（开发模式）
	AuthTimeout    time.Duration // Authenticating 态最长停留时间
	PingInterval   time.Duration // 服务端心跳间隔
	IdleTimeout    time.Duration // 双向无帧则判定失联（读deadline）
	WriteTimeout   time.Duration // 单帧写超时
	SendQueueSize  int           // 每连接出站队列深度
}

// LimitConfig 防滥用阈值。确切数值是部署参数而不是协议契约。
type LimitConfig struct {
	MaxBodyBytes   int           // 聊天消息体上限
	RateBurst      int           // 令牌桶容量（每窗口可发条数）
	RateInterval   time.Duration // 令牌桶补满窗口
	MaxViolations  int           // 协议违规多少次后断开
	MaxQueueDrops  int           // 连续投递失败多少次判定慢消费者
}

// RedisConfig 在线状态写入；Addr 为空时禁用
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	TTL      time.Duration
}

// KafkaConfig 消息归档 sink；Brokers 为空时禁用
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NatsConfig 通知分发 sink；URL 为空时禁用
type NatsConfig struct {
	URL           string
	SubjectPrefix string
}

type LoggingConfig struct {
	Level string
}

// Load 从环境变量加载配置
func Load() *Config {
	return &Config{
		GatewayID: getEnv("GATEWAY_ID", "rt-gw-1"),
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", insecureDefaultJWTSecret),
		},
		WS: WSConfig{
			AllowedOrigins: getSliceEnv("WS_ALLOWED_ORIGINS", nil),
			AuthTimeout:    getDurationEnv("WS_AUTH_TIMEOUT", 10*time.Second),
			PingInterval:   getDurationEnv("WS_PING_INTERVAL", 25*time.Second),
			IdleTimeout:    getDurationEnv("WS_IDLE_TIMEOUT", 75*time.Second),
			WriteTimeout:   getDurationEnv("WS_WRITE_TIMEOUT", 10*time.Second),
			SendQueueSize:  getIntEnv("WS_SEND_QUEUE_SIZE", 32),
		},
		Limits: LimitConfig{
			MaxBodyBytes:  getIntEnv("MSG_MAX_BODY_BYTES", 2000),
			RateBurst:     getIntEnv("MSG_RATE_BURST", 100),
			RateInterval:  getDurationEnv("MSG_RATE_INTERVAL", time.Second),
			MaxViolations: getIntEnv("WS_MAX_VIOLATIONS", 10),
			MaxQueueDrops: getIntEnv("WS_MAX_QUEUE_DROPS", 50),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			PoolSize: getIntEnv("REDIS_POOL_SIZE", 10),
			TTL:      getDurationEnv("PRESENCE_TTL", 2*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: getSliceEnv("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_ARCHIVE_TOPIC", "chat-archive"),
		},
		Nats: NatsConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "notify"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
