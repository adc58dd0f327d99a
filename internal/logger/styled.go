// internal/logger/styled.go
package logger

import (
	"fmt"
	"log/slog"

	"github.com/thushan/gateway/theme"
)

// StyledLogger wraps slog.Logger with theme-aware formatting methods for
// the handful of message shapes the gateway logs often enough to warrant
// their own colour.
type StyledLogger struct {
	logger *slog.Logger
	theme  *theme.Theme
}

// NewStyledLogger creates a new styled logger with the given theme
func NewStyledLogger(logger *slog.Logger, theme *theme.Theme) *StyledLogger {
	return &StyledLogger{
		logger: logger,
		theme:  theme,
	}
}

func (sl *StyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *StyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *StyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *StyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

// InfoWithPeer logs msg with the peer address highlighted, for selection
// and dispatch logging.
func (sl *StyledLogger) InfoWithPeer(msg string, peer string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.theme.Highlight.Sprint(peer))
	sl.logger.Info(styledMsg, args...)
}

// WarnWithPeer logs msg with the peer address highlighted in the warning
// colour, for health-check and breaker warnings.
func (sl *StyledLogger) WarnWithPeer(msg string, peer string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.theme.Warn.Sprint(peer))
	sl.logger.Warn(styledMsg, args...)
}

// InfoPeerHealth logs a peer's health transition, coloured by outcome.
func (sl *StyledLogger) InfoPeerHealth(msg string, peer string, healthy bool, args ...any) {
	statusColor := sl.theme.Success
	statusText := "healthy"
	if !healthy {
		statusColor = sl.theme.Error
		statusText = "unhealthy"
	}
	styledMsg := fmt.Sprintf("%s %s is %s", msg, sl.theme.Highlight.Sprint(peer), statusColor.Sprint(statusText))
	sl.logger.Info(styledMsg, args...)
}

// GetUnderlying returns the underlying slog.Logger for cases where direct access is needed
func (sl *StyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

// WithAttrs creates a new StyledLogger with additional structured attributes
func (sl *StyledLogger) WithAttrs(attrs ...slog.Attr) *StyledLogger {
	// Convert slog.Attr to key-value pairs
	args := make([]any, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}

	return &StyledLogger{
		logger: sl.logger.With(args...),
		theme:  sl.theme,
	}
}

// With creates a new StyledLogger with additional key-value pairs
func (sl *StyledLogger) With(args ...any) *StyledLogger {
	return &StyledLogger{
		logger: sl.logger.With(args...),
		theme:  sl.theme,
	}
}

// NewWithTheme creates both a regular logger and a styled logger
func NewWithTheme(cfg *Config) (*slog.Logger, *StyledLogger, func(), error) {
	logger, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	appTheme := theme.GetTheme(cfg.Theme)
	styledLogger := NewStyledLogger(logger, appTheme)

	return logger, styledLogger, cleanup, nil
}
