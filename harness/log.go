package harness

import (
	"go.uber.org/zap"

	"github.com/wishful-project/agent/common/go/logging"
)

// LoggerName is the name of the harness logger.
const LoggerName = "wishful_agent.main"

// LogContext is the logging scope of a single harness run.
type LogContext struct {
	log   *zap.SugaredLogger
	level *zap.AtomicLevel
}

// NewLogContext initializes logging from the given configuration.
func NewLogContext(cfg *logging.Config) (*LogContext, error) {
	log, level, err := logging.Init(cfg)
	if err != nil {
		return nil, err
	}

	return &LogContext{
		log:   log.Named(LoggerName),
		level: &level,
	}, nil
}

// WrapLogger creates a logging scope over an existing logger, such as the
// one produced by zaptest.
func WrapLogger(log *zap.SugaredLogger) *LogContext {
	return &LogContext{
		log: log.Named(LoggerName),
	}
}

// Logger returns the harness logger.
func (m *LogContext) Logger() *zap.SugaredLogger {
	return m.log
}

// Level returns the atomic level of this scope, or nil for wrapped loggers.
func (m *LogContext) Level() *zap.AtomicLevel {
	return m.level
}

// Close flushes buffered log entries.
func (m *LogContext) Close() error {
	// Syncing a terminal fails on some platforms, there is nothing to flush
	// there anyway.
	_ = m.log.Sync()
	return nil
}
