// Package loglevel implements the per-processor logger-level filter
// described in spec §4.6. It is deliberately independent of the batcher:
// a processor that wants to drop messages below its configured verbosity
// calls ShouldLog itself before doing work.
package loglevel

// Level is a logger verbosity, ordered most to least severe.
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
	LevelTrace Level = "trace"
	LevelNone  Level = "none"
)

// severity maps each level to a rank; lower is more severe. LevelNone is
// excluded on purpose — it is a sentinel meaning "nothing logs", handled
// explicitly by ShouldLog rather than ranked alongside real levels.
var severity = map[Level]int{
	LevelError: 0,
	LevelWarn:  1,
	LevelInfo:  2,
	LevelDebug: 3,
	LevelTrace: 4,
}

// NormalizeLogLevel maps a notification level to a logger level, defaulting
// unknown or absent input to LevelTrace (log everything) so a misconfigured
// filter fails open rather than silently dropping messages.
func NormalizeLogLevel(x string) Level {
	switch Level(x) {
	case LevelError:
		return LevelError
	case LevelWarn:
		return LevelWarn
	case "warning":
		// notification level "warning" normalizes to logger level "warn".
		return LevelWarn
	case LevelInfo:
		return LevelInfo
	case LevelDebug:
		return LevelDebug
	case LevelTrace:
		return LevelTrace
	case LevelNone:
		return LevelNone
	default:
		return LevelTrace
	}
}

// ShouldLog reports whether a message at msgLevel should be emitted given a
// logger configured at loggerLevel. Either side being LevelNone suppresses
// logging entirely. loggerLevel defaults to LevelTrace when empty.
func ShouldLog(msgLevel Level, loggerLevel Level) bool {
	if loggerLevel == "" {
		loggerLevel = LevelTrace
	}
	if msgLevel == LevelNone || loggerLevel == LevelNone {
		return false
	}

	msgRank, ok := severity[msgLevel]
	if !ok {
		// Unranked message levels (e.g. an unrecognized string) are treated
		// as maximally severe so they are never silently swallowed.
		msgRank = severity[LevelError]
	}
	loggerRank, ok := severity[loggerLevel]
	if !ok {
		loggerRank = severity[LevelTrace]
	}

	return msgRank <= loggerRank
}
