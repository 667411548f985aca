package errs

// 网关错误码分段：10xx 认证，11xx 协议，12xx 容量，13xx 传输。

var (
	// 认证错误：一律断开连接，不重试
	ErrAuthMalformed = NewCodeError(1001, "auth token malformed")
	ErrAuthInvalid   = NewCodeError(1002, "auth token signature invalid")
	ErrAuthExpired   = NewCodeError(1003, "auth token expired")
	ErrAuthTimeout   = NewCodeError(1004, "authentication timed out")

	// 协议错误：丢帧计数，超阈值才断开
	ErrFrameMalformed = NewCodeError(1101, "malformed frame")
	ErrUnknownAction  = NewCodeError(1102, "unknown action")
	ErrBodyTooLarge   = NewCodeError(1103, "message body too large")

	// 容量错误：丢弃单条投递
	ErrQueueFull   = NewCodeError(1201, "outbound queue full")
	ErrRateLimited = NewCodeError(1202, "sender rate limited")

	// 传输错误：直接触发 teardown
	ErrTransport = NewCodeError(1301, "transport failure")
)

// AuthReason 认证失败对外展示的 reason 字段
func AuthReason(err error) string {
	ce := AsCode(err)
	if ce == nil {
		return "invalid"
	}
	switch ce.Code {
	case ErrAuthMalformed.Code:
		return "malformed"
	case ErrAuthExpired.Code:
		return "expired"
	case ErrAuthTimeout.Code:
		return "timeout"
	default:
		return "invalid"
	}
}
