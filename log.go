package pdk

import (
	"fmt"
	"strings"

	"github.com/reglet-dev/pdk/memory"
)

// LogLevel selects the host log sink a message goes to.
type LogLevel int

// Log levels, most severe first.
const (
	LogError LogLevel = iota
	LogWarn
	LogInfo
	LogDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "error"
	case LogWarn:
		return "warn"
	case LogInfo:
		return "info"
	case LogDebug:
		return "debug"
	default:
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
}

// ParseLogLevel maps a level name (case-insensitive) to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogError, nil
	case "warn", "warning":
		return LogWarn, nil
	case "info":
		return LogInfo, nil
	case "debug":
		return LogDebug, nil
	default:
		return LogInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Log sends msg to the host sink for level.
//
// Logging never aborts the caller: the message region is released on every
// path and any failure, including a trap in the sink, is discarded.
func (p *PDK) Log(level LogLevel, msg string) {
	if msg == "" {
		return
	}
	defer func() { _ = recover() }()

	_ = memory.WithString(p.host, msg, func(r *memory.Region) error {
		switch level {
		case LogError:
			p.host.LogError(r.Offset())
		case LogWarn:
			p.host.LogWarn(r.Offset())
		case LogInfo:
			p.host.LogInfo(r.Offset())
		case LogDebug:
			p.host.LogDebug(r.Offset())
		default:
			p.host.LogInfo(r.Offset())
		}
		return nil
	})
}

// Logf formats and logs a message.
func (p *PDK) Logf(level LogLevel, format string, args ...any) {
	p.Log(level, fmt.Sprintf(format, args...))
}
