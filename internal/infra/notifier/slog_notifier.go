package notifier

import "log/slog"

// SlogNotifier forwards notifications to a structured logger. It is the
// default sink for the CLI, where the "user display" is the terminal.
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier creates a notifier backed by the given logger.
// A nil logger falls back to slog.Default().
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

// Info implements Notifier.
func (n *SlogNotifier) Info(msg string) { n.logger.Info(msg, slog.String("notice", "user")) }

// Warn implements Notifier.
func (n *SlogNotifier) Warn(msg string) { n.logger.Warn(msg, slog.String("notice", "user")) }

// Error implements Notifier.
func (n *SlogNotifier) Error(msg string) { n.logger.Error(msg, slog.String("notice", "user")) }
