package observe

import (
	"fmt"

	"github.com/delaneyj/signalpath/tracker"
	"github.com/sirupsen/logrus"
)

type config struct {
	signalInitial bool
	weakRoot      bool
	trackerOpts   []tracker.Option
}

type Option func(*config)

// WithSignalInitial controls whether a subscriber first receives one
// notification computed from the graph at subscribe time. Default true.
func WithSignalInitial(signal bool) Option {
	return func(c *config) { c.signalInitial = signal }
}

// WithWeakRoot keeps the observable and its trackers from holding the
// source strongly. Subscribing after the source was collected fails with
// tracker.ErrNilRoot. Property, PropertySlim and All always hold their
// source.
func WithWeakRoot() Option {
	return func(c *config) {
		c.weakRoot = true
		c.trackerOpts = append(c.trackerOpts, tracker.WithWeakRoot())
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) { c.trackerOpts = append(c.trackerOpts, tracker.WithLogger(l)) }
}

func newConfig(opts []Option) config {
	c := config{signalInitial: true}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// ArgumentError reports an invalid argument to an entry point.
type ArgumentError struct {
	Param   string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Param, e.Message)
}
