package static

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RequestLog describes an answered request.
// Duration covers the handling up to the response head; streaming the body is not included.
type RequestLog struct {
	ID         uuid.UUID
	RemoteAddr string
	Method     string
	Path       string
	Status     uint
	Start      time.Time
	Duration   time.Duration
}

// LogValue implements [slog.LogValuer].
func (l RequestLog) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", l.ID.String()),
		slog.String("remote", l.RemoteAddr),
		slog.String("method", l.Method),
		slog.String("path", l.Path),
		slog.Uint64("status", uint64(l.Status)),
		slog.Duration("duration", l.Duration),
	)
}

// LogTo returns an OnRequest callback writing every request to logger.
func LogTo(logger *slog.Logger) func(RequestLog) {
	return func(l RequestLog) {
		logger.Info("request", "request", l)
	}
}
