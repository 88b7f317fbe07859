// Package tracker follows a property path through a live object graph.
//
// A Tracker owns one link per path segment. Each link is subscribed to the
// object currently at its position, filtered to the segment's property.
// When a link's value changes the next link is re-pointed at the new object
// (or released when it is nil) and the change propagates down the chain on
// the same call stack. One Change is reported per event that reaches the
// terminal link, however many links were rebound on the way.
//
// Propagation is synchronous on the goroutine that raised the event. A
// Tracker is not safe for concurrent event delivery; a callback racing with
// Dispose may still run once.
package tracker

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"weak"

	"github.com/delaneyj/signalpath/maybe"
	"github.com/delaneyj/signalpath/notify"
	"github.com/delaneyj/signalpath/path"
	"github.com/sirupsen/logrus"
)

var (
	ErrDisposed = errors.New("tracker: disposed")
	ErrNilRoot  = errors.New("tracker: nil root")
)

var discard = func() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}()

// Change is the aggregated notification for the whole path.
type Change[V any] struct {
	// Sender raised the event that started the propagation, or is the object
	// a link was rebound to.
	Sender any
	Args   notify.PropertyChangedEventArgs
	// Source owns the terminal property; nil when the chain is broken.
	Source any
	Value  maybe.Maybe[V]
}

// LinkChange is reported for every link that signals during propagation.
type LinkChange struct {
	Index  int
	Sender any
	Args   notify.PropertyChangedEventArgs
}

type Handlers[V any] struct {
	OnChange func(Change[V])
	OnLink   func(LinkChange)
	// OnError receives getter failures. The tracker is disposed first.
	OnError func(error)
}

type config struct {
	weak bool
	log  logrus.FieldLogger
}

type Option func(*config)

// WithWeakRoot holds the root through a weak pointer so the tracker does
// not extend its lifetime. Once the root is collected Source returns nil
// and the first link reads as nil.
func WithWeakRoot() Option {
	return func(c *config) { c.weak = true }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

type Tracker[R any, V any] struct {
	path     *path.Path[R, V]
	links    []link
	root     *R
	weakRoot weak.Pointer[R]
	handlers Handlers[V]
	log      logrus.FieldLogger
	disposed atomic.Bool
}

// New binds every link to the current object graph. Nothing is reported
// for the initial state.
func New[R any, V any](root *R, p *path.Path[R, V], h Handlers[V], opts ...Option) (*Tracker[R, V], error) {
	if root == nil {
		return nil, ErrNilRoot
	}
	cfg := config{log: discard}
	for _, opt := range opts {
		opt(&cfg)
	}

	t := &Tracker[R, V]{
		path:     p,
		links:    make([]link, p.Len()),
		handlers: h,
		log:      cfg.log.WithField("path", p.Expr()),
	}
	for i := range t.links {
		t.links[i].seg = p.At(i)
	}

	if cfg.weak {
		t.weakRoot = weak.Make(root)
		if err := t.links[0].bindWeak(root, t.resolveRoot, t.handler(0)); err != nil {
			return nil, err
		}
	} else {
		t.root = root
		if _, err := t.links[0].rebind(root, t.handler(0)); err != nil {
			return nil, err
		}
	}

	for i := range t.links {
		if err := t.links[i].read(); err != nil {
			t.Dispose()
			return nil, err
		}
		if i+1 < len(t.links) {
			if _, err := t.links[i+1].rebind(t.links[i].value, t.handler(i+1)); err != nil {
				t.Dispose()
				return nil, err
			}
		}
	}
	return t, nil
}

func (t *Tracker[R, V]) resolveRoot() any {
	if r := t.weakRoot.Value(); r != nil {
		return r
	}
	return nil
}

func (t *Tracker[R, V]) handler(i int) func(uint64, any, notify.PropertyChangedEventArgs) {
	return func(gen uint64, sender any, e notify.PropertyChangedEventArgs) {
		t.onEvent(i, gen, sender, e)
	}
}

func (t *Tracker[R, V]) onEvent(i int, gen uint64, sender any, e notify.PropertyChangedEventArgs) {
	if t.disposed.Load() || t.links[i].gen != gen {
		return
	}
	if err := t.propagate(i, sender, e); err != nil {
		t.fail(i, err)
	}
}

// propagate refreshes link i and settles every link after it. Depth is
// bounded by the path length.
func (t *Tracker[R, V]) propagate(i int, sender any, e notify.PropertyChangedEventArgs) error {
	l := &t.links[i]
	if err := l.read(); err != nil {
		return err
	}
	if t.handlers.OnLink != nil {
		t.handlers.OnLink(LinkChange{Index: i, Sender: sender, Args: e})
		if t.disposed.Load() {
			return nil
		}
	}

	if i == len(t.links)-1 {
		t.emit(sender, e)
		return nil
	}

	next := &t.links[i+1]
	if l.value != nil && path.SameRef(next.current(), l.value) {
		// raised without a new reference, pass it on without resubscribing
		return t.propagate(i+1, next.current(), e)
	}

	signal, err := next.rebind(l.value, t.handler(i+1))
	if err != nil || !signal {
		return err
	}
	t.log.WithFields(logrus.Fields{
		"link":     i + 1,
		"property": next.seg.Name(),
		"bound":    next.state == bound,
	}).Debug("rebound link")

	return t.propagate(i+1, next.current(), notify.Args(next.seg.Name()))
}

func (t *Tracker[R, V]) emit(sender any, e notify.PropertyChangedEventArgs) {
	if t.handlers.OnChange == nil {
		return
	}
	source, value, err := t.terminal()
	if err != nil {
		t.fail(len(t.links)-1, err)
		return
	}
	t.handlers.OnChange(Change[V]{
		Sender: sender,
		Args:   e,
		Source: source,
		Value:  value,
	})
}

func (t *Tracker[R, V]) terminal() (any, maybe.Maybe[V], error) {
	last := &t.links[len(t.links)-1]
	source := last.current()
	if last.state != bound || source == nil {
		return nil, maybe.None[V](), nil
	}
	v, err := path.Cast[V](last.seg, last.value)
	if err != nil {
		return nil, maybe.None[V](), err
	}
	return source, maybe.Some(v), nil
}

func (t *Tracker[R, V]) fail(i int, err error) {
	t.log.WithError(err).WithField("link", i).Warn("getter failed, disposing tracker")
	t.Dispose()
	if t.handlers.OnError != nil {
		t.handlers.OnError(err)
	}
}

// Value is the current terminal value, None when the chain is broken.
func (t *Tracker[R, V]) Value() (maybe.Maybe[V], error) {
	if t.disposed.Load() {
		return maybe.None[V](), ErrDisposed
	}
	_, v, err := t.terminal()
	return v, err
}

// Source returns the root, nil if it was weakly held and collected.
func (t *Tracker[R, V]) Source() (*R, error) {
	if t.disposed.Load() {
		return nil, ErrDisposed
	}
	if t.root != nil {
		return t.root, nil
	}
	return t.weakRoot.Value(), nil
}

func (t *Tracker[R, V]) Path() (*path.Path[R, V], error) {
	if t.disposed.Load() {
		return nil, ErrDisposed
	}
	return t.path, nil
}

// Len is the number of links, one per path segment.
func (t *Tracker[R, V]) Len() (int, error) {
	if t.disposed.Load() {
		return 0, ErrDisposed
	}
	return len(t.links), nil
}

// Links returns a snapshot of every link, root first.
func (t *Tracker[R, V]) Links() ([]LinkState, error) {
	if t.disposed.Load() {
		return nil, ErrDisposed
	}
	out := make([]LinkState, len(t.links))
	for i := range t.links {
		out[i] = t.links[i].snapshot()
	}
	return out, nil
}

func (t *Tracker[R, V]) IsDisposed() bool {
	return t.disposed.Load()
}

// Dispose releases every link. Calling it again does nothing.
func (t *Tracker[R, V]) Dispose() {
	if t.disposed.Swap(true) {
		return
	}
	for i := range t.links {
		t.links[i].unbind()
	}
	t.root = nil
	t.log.Debug("disposed")
}

func errSourceType(source any, seg *path.Segment) error {
	return fmt.Errorf("source of type %T is not a %s", source, seg.DeclaringType())
}
