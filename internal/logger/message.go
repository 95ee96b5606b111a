package logger

import (
	"go.uber.org/zap"
)

// MessageInfo carries queue delivery metadata for log and sentry correlation
type MessageInfo struct {
	ID           string
	Command      string
	Subject      string
	Queue        string
	StreamSeq    uint64
	NumDelivered uint64
}

// Fields returns the zap fields describing the message
func (i MessageInfo) Fields() []zap.Field {
	return []zap.Field{
		zap.String("message_id", i.ID),
		zap.String("command", i.Command),
		zap.String("subject", i.Subject),
		zap.String("queue", i.Queue),
		zap.Uint64("stream_seq", i.StreamSeq),
		zap.Uint64("num_delivered", i.NumDelivered),
	}
}

// WithMessage returns a logger scoped to a queue message
func WithMessage(info MessageInfo) *zap.Logger {
	return log.With(info.Fields()...)
}

// InfoMsg logs an info message scoped to a queue message
func InfoMsg(info MessageInfo, msg string, fields ...zap.Field) {
	WithMessage(info).Info(msg, fields...)
}

// WarnMsg logs a warning message scoped to a queue message
func WarnMsg(info MessageInfo, msg string, fields ...zap.Field) {
	WithMessage(info).Warn(msg, fields...)
}

// DebugMsg logs a debug message scoped to a queue message
func DebugMsg(info MessageInfo, msg string, fields ...zap.Field) {
	WithMessage(info).Debug(msg, fields...)
}

// ErrorMsg logs an error scoped to a queue message
func ErrorMsg(info MessageInfo, err error, fields ...zap.Field) {
	WithMessage(info).Error(errorMessage(err), fields...)
}
