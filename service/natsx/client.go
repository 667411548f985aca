package natsx

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// Notifier 把 presence/系统事件发布到 NATS，
// 通知分发服务（push/email/SMS）在下游订阅消费。

type Config struct {
	URL           string
	Name          string
	SubjectPrefix string // 默认 "notify"
	ReconnectWait time.Duration
	Timeout       time.Duration
}

type Notifier struct {
	cfg Config
	nc  *nats.Conn
}

func NewNotifier(cfg Config) (*Notifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url missing")
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "notify"
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "nats connect")
	}
	return &Notifier{cfg: cfg, nc: nc}, nil
}

// PublishPresence 发布到 <prefix>.presence.<room>；失败只记错不重试
func (n *Notifier) PublishPresence(room string, payload []byte) error {
	if n == nil {
		return nil
	}
	return n.nc.Publish(n.cfg.SubjectPrefix+".presence."+room, payload)
}

// PublishSystem 网关级事件（启动/下线等）
func (n *Notifier) PublishSystem(kind string, payload []byte) error {
	if n == nil {
		return nil
	}
	return n.nc.Publish(n.cfg.SubjectPrefix+".system."+kind, payload)
}

// Close drain 后断开
func (n *Notifier) Close() error {
	if n == nil || n.nc == nil {
		return nil
	}
	return n.nc.Drain()
}
