package notifier

// NoopNotifier discards all notifications. Useful in tests and for callers
// that surface results some other way.
type NoopNotifier struct{}

// NewNoopNotifier creates a notifier that does nothing.
func NewNoopNotifier() *NoopNotifier { return &NoopNotifier{} }

// Info implements Notifier.
func (n *NoopNotifier) Info(string) {}

// Warn implements Notifier.
func (n *NoopNotifier) Warn(string) {}

// Error implements Notifier.
func (n *NoopNotifier) Error(string) {}
