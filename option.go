package relock

import "go.uber.org/zap"

// Option configures a Lock created by NewLock.
type Option func(*Lock)

// WithName names the lock in logs and trace annotations.
func WithName(name string) Option {
	return func(l *Lock) {
		l.name = name
	}
}

// WithLogger makes the lock log its transitions at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(l *Lock) {
		if log != nil {
			l.log = log.Named("relock")
		}
	}
}
