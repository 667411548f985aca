package chat

import (
	"encoding/json"
	"time"

	errs "github.com/streamverse/realtime-gateway/tools/errs"
)

// 线协议：客户端与网关之间的 JSON 帧。
// 入站 type: auth / join-room / leave-room / chat-message
// 出站 type: auth-ok / auth-error / user-joined / user-left / chat-message

const (
	FrameAuth  = "auth"
	FrameJoin  = "join-room"
	FrameLeave = "leave-room"
	FrameChat  = "chat-message"

	EventAuthOK     = "auth-ok"
	EventAuthError  = "auth-error"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
	EventChat       = "chat-message"
)

// Frame 入站帧
type Frame struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	RoomID string `json:"roomId,omitempty"`
	Body   string `json:"body,omitempty"`
}

// Event 出站帧
type Event struct {
	Type           string `json:"type"`
	RoomID         string `json:"roomId,omitempty"`
	UserID         string `json:"userId,omitempty"`
	Body           string `json:"body,omitempty"`
	Timestamp      int64  `json:"timestamp,omitempty"`
	Reason         string `json:"reason,omitempty"`
	ServerTime     int64  `json:"serverTime,omitempty"`
	PingIntervalMs int64  `json:"pingIntervalMs,omitempty"`
}

// ParseFrame 解析入站帧；未知 type 与坏 JSON 都算协议违规
func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.ErrFrameMalformed.WithDetail(err.Error())
	}
	switch f.Type {
	case FrameAuth, FrameJoin, FrameLeave, FrameChat:
		return f, nil
	default:
		return nil, errs.ErrUnknownAction.WithDetail(f.Type)
	}
}

// ---- 服务端回执构造 ----

func BuildAuthOK(userID string, pingInterval time.Duration) []byte {
	return marshalEvent(&Event{
		Type:           EventAuthOK,
		UserID:         userID,
		ServerTime:     time.Now().UnixMilli(),
		PingIntervalMs: pingInterval.Milliseconds(),
	})
}

func BuildAuthError(reason string) []byte {
	return marshalEvent(&Event{Type: EventAuthError, Reason: reason})
}

func BuildPresence(eventType, roomID, userID string) []byte {
	return marshalEvent(&Event{
		Type:      eventType,
		RoomID:    roomID,
		UserID:    userID,
		Timestamp: time.Now().UnixMilli(),
	})
}

func BuildChat(roomID, userID, body string, receivedAt time.Time) []byte {
	return marshalEvent(&Event{
		Type:      EventChat,
		RoomID:    roomID,
		UserID:    userID,
		Body:      body,
		Timestamp: receivedAt.UnixMilli(),
	})
}

func marshalEvent(ev *Event) []byte {
	data, _ := json.Marshal(ev) // 字段都是基础类型，不会失败
	return data
}
