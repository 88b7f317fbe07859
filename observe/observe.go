// Package observe turns property paths into notification streams.
//
// Each Subscribe builds its own tracker over the source's object graph and
// disposes it when the subscription is disposed. With signal-initial (the
// default) a subscriber first receives one notification computed from the
// graph at the moment it subscribes.
package observe

import (
	"fmt"
	"reflect"
	"strings"
	"weak"

	"github.com/delaneyj/signalpath/maybe"
	"github.com/delaneyj/signalpath/notify"
	"github.com/delaneyj/signalpath/path"
	"github.com/delaneyj/signalpath/stream"
	"github.com/delaneyj/signalpath/tracker"
)

// Event is the raw change shape: who raised it and what changed.
type Event struct {
	Sender any
	Args   notify.PropertyChangedEventArgs
}

// ValueEvent is Event plus the terminal value of the path. Value is None
// when an intermediate is nil.
type ValueEvent[V any] struct {
	Sender any
	Args   notify.PropertyChangedEventArgs
	Value  maybe.Maybe[V]
}

func toEvent[V any](sender any, e notify.PropertyChangedEventArgs, _ maybe.Maybe[V]) Event {
	return Event{Sender: sender, Args: e}
}

func toArgs[V any](_ any, e notify.PropertyChangedEventArgs, _ maybe.Maybe[V]) notify.PropertyChangedEventArgs {
	return e
}

func toValue[V any](_ any, _ notify.PropertyChangedEventArgs, v maybe.Maybe[V]) maybe.Maybe[V] {
	return v
}

func toValueEvent[V any](sender any, e notify.PropertyChangedEventArgs, v maybe.Maybe[V]) ValueEvent[V] {
	return ValueEvent[V]{Sender: sender, Args: e, Value: v}
}

// PropertyChanged observes the path expr on src, for example "Level1.Name".
// Nested links are resubscribed as they change and nil intermediates are
// handled.
func PropertyChanged[R any](src *R, expr string, opts ...Option) (stream.Observable[Event], error) {
	p, err := resolve[R, any](src, expr)
	if err != nil {
		return nil, err
	}
	return PathChanged(src, p, opts...)
}

// PathChanged is PropertyChanged with a compiled path.
func PathChanged[R any, V any](src *R, p *path.Path[R, V], opts ...Option) (stream.Observable[Event], error) {
	if err := check(src, p); err != nil {
		return nil, err
	}
	return core(src, p, newConfig(opts), toEvent[V]), nil
}

// PropertyChangedSlim is PropertyChanged delivering only the event args.
func PropertyChangedSlim[R any](src *R, expr string, opts ...Option) (stream.Observable[notify.PropertyChangedEventArgs], error) {
	p, err := resolve[R, any](src, expr)
	if err != nil {
		return nil, err
	}
	return core(src, p, newConfig(opts), toArgs[any]), nil
}

// Value observes the terminal value of expr.
func Value[V any, R any](src *R, expr string, opts ...Option) (stream.Observable[maybe.Maybe[V]], error) {
	p, err := resolve[R, V](src, expr)
	if err != nil {
		return nil, err
	}
	return PathValue(src, p, opts...)
}

// PathValue is Value with a compiled path.
func PathValue[R any, V any](src *R, p *path.Path[R, V], opts ...Option) (stream.Observable[maybe.Maybe[V]], error) {
	if err := check(src, p); err != nil {
		return nil, err
	}
	return core(src, p, newConfig(opts), toValue[V]), nil
}

// ValueChanged observes expr delivering the event and the terminal value.
func ValueChanged[V any, R any](src *R, expr string, opts ...Option) (stream.Observable[ValueEvent[V]], error) {
	p, err := resolve[R, V](src, expr)
	if err != nil {
		return nil, err
	}
	return core(src, p, newConfig(opts), toValueEvent[V]), nil
}

// FullPath signals whenever any link of expr signals, not only the
// terminal one. Paths must have at least two segments.
func FullPath[R any](src *R, expr string, opts ...Option) (stream.Observable[notify.PropertyChangedEventArgs], error) {
	p, err := resolve[R, any](src, expr)
	if err != nil {
		return nil, err
	}
	if p.Len() < 2 {
		return nil, &ArgumentError{
			Param:   "expr",
			Message: fmt.Sprintf("expected path to have more than one item, the path was %q, did you mean to call PropertySlim?", expr),
		}
	}

	cfg := newConfig(opts)
	root := rootFunc(src, cfg)
	live := stream.Create(func(o stream.Observer[notify.PropertyChangedEventArgs]) stream.Subscription {
		tr, err := tracker.New(root(), p, tracker.Handlers[any]{
			OnLink:  func(c tracker.LinkChange) { o.OnNext(c.Args) },
			OnError: o.OnError,
		}, cfg.trackerOpts...)
		if err != nil {
			o.OnError(err)
			return stream.Nop
		}
		return stream.NewSubscription(tr.Dispose)
	})
	if !cfg.signalInitial {
		return live, nil
	}
	return stream.Concat(stream.Return(notify.AllChanged), live), nil
}

// rootFunc returns src, through a weak pointer when the config asks for a
// weak root. The result is nil once a weakly held src was collected.
func rootFunc[R any](src *R, cfg config) func() *R {
	if !cfg.weakRoot {
		return func() *R { return src }
	}
	return weak.Make(src).Value
}

func core[R any, V any, T any](src *R, p *path.Path[R, V], cfg config, create func(any, notify.PropertyChangedEventArgs, maybe.Maybe[V]) T) stream.Observable[T] {
	root := rootFunc(src, cfg)
	live := stream.Create(func(o stream.Observer[T]) stream.Subscription {
		tr, err := tracker.New(root(), p, tracker.Handlers[V]{
			OnChange: func(c tracker.Change[V]) { o.OnNext(create(c.Sender, c.Args, c.Value)) },
			OnError:  o.OnError,
		}, cfg.trackerOpts...)
		if err != nil {
			o.OnError(err)
			return stream.Nop
		}
		return stream.NewSubscription(tr.Dispose)
	})
	if !cfg.signalInitial {
		return live
	}

	initial := stream.Defer(func() stream.Observable[T] {
		r := root()
		if r == nil {
			return stream.Throw[T](tracker.ErrNilRoot)
		}
		source, v, err := p.SourceAndValue(r)
		if err != nil {
			return stream.Throw[T](err)
		}
		return stream.Return(create(source, notify.AllChanged, v))
	})
	return stream.Concat(initial, live)
}

func resolve[R any, V any](src *R, expr string) (*path.Path[R, V], error) {
	if src == nil {
		return nil, &ArgumentError{Param: "src", Message: "is nil"}
	}
	if strings.TrimSpace(expr) == "" {
		return nil, &ArgumentError{Param: "expr", Message: "is empty"}
	}
	if _, ok := any(src).(notify.Notifier); !ok {
		return nil, &ArgumentError{Param: "src", Message: fmt.Sprintf("%T does not implement notify.Notifier", src)}
	}
	return path.GetOrCreate[R, V](expr)
}

func check[R any, V any](src *R, p *path.Path[R, V]) error {
	if src == nil {
		return &ArgumentError{Param: "src", Message: "is nil"}
	}
	if p == nil {
		return &ArgumentError{Param: "path", Message: "is nil"}
	}
	if _, ok := any(src).(notify.Notifier); !ok {
		return &ArgumentError{Param: "src", Message: fmt.Sprintf("%T does not implement notify.Notifier", src)}
	}
	return nil
}

// Property observes a single property of src by name.
func Property(src notify.Notifier, name string, opts ...Option) (stream.Observable[Event], error) {
	if err := checkProperty(src, name); err != nil {
		return nil, err
	}
	return property(src, name, newConfig(opts), func(sender any, e notify.PropertyChangedEventArgs) Event {
		return Event{Sender: sender, Args: e}
	}), nil
}

// PropertySlim is Property delivering only the event args.
func PropertySlim(src notify.Notifier, name string, opts ...Option) (stream.Observable[notify.PropertyChangedEventArgs], error) {
	if err := checkProperty(src, name); err != nil {
		return nil, err
	}
	return property(src, name, newConfig(opts), func(_ any, e notify.PropertyChangedEventArgs) notify.PropertyChangedEventArgs {
		return e
	}), nil
}

// All observes every property-changed event of src, unfiltered and
// without an initial notification.
func All(src notify.Notifier) (stream.Observable[Event], error) {
	if path.IsNil(src) {
		return nil, &ArgumentError{Param: "src", Message: "is nil"}
	}
	return stream.Create(func(o stream.Observer[Event]) stream.Subscription {
		return stream.NewSubscription(src.OnPropertyChanged(func(sender any, e notify.PropertyChangedEventArgs) {
			o.OnNext(Event{Sender: sender, Args: e})
		}))
	}), nil
}

func property[T any](src notify.Notifier, name string, cfg config, create func(any, notify.PropertyChangedEventArgs) T) stream.Observable[T] {
	live := stream.Create(func(o stream.Observer[T]) stream.Subscription {
		return stream.NewSubscription(src.OnPropertyChanged(func(sender any, e notify.PropertyChangedEventArgs) {
			if e.IsMatch(name) {
				o.OnNext(create(sender, e))
			}
		}))
	})
	if !cfg.signalInitial {
		return live
	}
	return stream.Concat(stream.Defer(func() stream.Observable[T] {
		return stream.Return(create(src, notify.AllChanged))
	}), live)
}

func checkProperty(src notify.Notifier, name string) error {
	if path.IsNil(src) {
		return &ArgumentError{Param: "src", Message: "is nil"}
	}
	if name == "" {
		return &ArgumentError{Param: "name", Message: "is empty"}
	}
	// a property takes only the receiver and returns one value
	m, ok := reflect.TypeOf(src).MethodByName(name)
	if !ok || m.Type.NumIn() != 1 || m.Type.NumOut() != 1 {
		return &ArgumentError{Param: "name", Message: fmt.Sprintf("the type %T does not have a property named %s", src, name)}
	}
	return nil
}
