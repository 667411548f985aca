package chat

import (
	"context"
	"time"

	"github.com/streamverse/realtime-gateway/logger"
)

// 外部副作用（Kafka 归档、NATS 通知、Redis 在线态）统一走这里的
// worker 池异步执行，路由路径上绝不等网络 I/O。
// 任何 sink 都可以缺席；投递队列满时丢弃并记日志。

// MessageArchiver 聊天消息归档（Kafka）
type MessageArchiver interface {
	Archive(key string, payload []byte)
}

// PresenceNotifier 下游通知分发（NATS）
type PresenceNotifier interface {
	PublishPresence(room string, payload []byte) error
}

// PresenceStore 在线状态镜像（Redis）
type PresenceStore interface {
	Online(ctx context.Context, userID, connID string) error
	Offline(ctx context.Context, userID, connID string) error
	Touch(ctx context.Context, userID, connID string) error
}

type jobKind int

const (
	jobArchive jobKind = iota
	jobNotify
	jobOnline
	jobOffline
	jobTouch
)

type sinkJob struct {
	kind    jobKind
	room    string
	userID  string
	connID  string
	payload []byte
}

type SinkDispatcher struct {
	jobs chan sinkJob
	done chan struct{}

	archiver MessageArchiver
	notifier PresenceNotifier
	presence PresenceStore
}

// NewSinkDispatcher 任一依赖可传 nil
func NewSinkDispatcher(workers, queue int, archiver MessageArchiver, notifier PresenceNotifier, presence PresenceStore) *SinkDispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	d := &SinkDispatcher{
		jobs:     make(chan sinkJob, queue),
		done:     make(chan struct{}),
		archiver: archiver,
		notifier: notifier,
		presence: presence,
	}
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

func (d *SinkDispatcher) worker() {
	for {
		select {
		case <-d.done:
			return
		case job := <-d.jobs:
			d.run(job)
		}
	}
}

func (d *SinkDispatcher) run(job sinkJob) {
	switch job.kind {
	case jobArchive:
		if d.archiver != nil {
			d.archiver.Archive(job.room, job.payload)
		}
	case jobNotify:
		if d.notifier != nil {
			if err := d.notifier.PublishPresence(job.room, job.payload); err != nil {
				logger.Warnf("[sink] notify room=%s err=%v", job.room, err)
			}
		}
	case jobOnline, jobOffline, jobTouch:
		if d.presence == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		var err error
		switch job.kind {
		case jobOnline:
			err = d.presence.Online(ctx, job.userID, job.connID)
		case jobOffline:
			err = d.presence.Offline(ctx, job.userID, job.connID)
		default:
			err = d.presence.Touch(ctx, job.userID, job.connID)
		}
		if err != nil {
			logger.Warnf("[sink] presence user=%s conn=%s err=%v", job.userID, job.connID, err)
		}
	}
}

func (d *SinkDispatcher) submit(job sinkJob) {
	if d == nil {
		return
	}
	select {
	case d.jobs <- job:
	default:
		logger.Warnf("[sink] queue full, drop job kind=%d room=%s", job.kind, job.room)
	}
}

func (d *SinkDispatcher) ArchiveChat(roomID string, payload []byte) {
	d.submit(sinkJob{kind: jobArchive, room: roomID, payload: payload})
}

func (d *SinkDispatcher) NotifyPresence(roomID string, payload []byte) {
	d.submit(sinkJob{kind: jobNotify, room: roomID, payload: payload})
}

func (d *SinkDispatcher) Online(userID, connID string) {
	d.submit(sinkJob{kind: jobOnline, userID: userID, connID: connID})
}

func (d *SinkDispatcher) Offline(userID, connID string) {
	d.submit(sinkJob{kind: jobOffline, userID: userID, connID: connID})
}

func (d *SinkDispatcher) Touch(userID, connID string) {
	d.submit(sinkJob{kind: jobTouch, userID: userID, connID: connID})
}

// Close 停掉 worker；在途 job 放弃（at-most-once 语义）
func (d *SinkDispatcher) Close() {
	if d == nil {
		return
	}
	close(d.done)
}
