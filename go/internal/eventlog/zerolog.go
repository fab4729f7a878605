package eventlog

import (
	"github.com/rs/zerolog"
)

// LogSink writes entries through a zerolog logger.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(e Entry) {
	var ev *zerolog.Event
	switch e.Level {
	case LevelDebug:
		ev = s.logger.Debug()
	case LevelWarn:
		ev = s.logger.Warn()
	case LevelError:
		ev = s.logger.Error()
	default:
		ev = s.logger.Info()
	}

	ip := e.IP
	if ip == "" {
		ip = ServerIP
	}
	ev = ev.Str("category", string(e.Category)).Str("ip", ip)
	if len(e.Details) > 0 {
		ev = ev.Fields(e.Details)
	}
	ev.Msg(e.Message)
}
