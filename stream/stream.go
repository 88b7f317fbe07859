// Package stream is a small push-based observable used to deliver path
// notifications. Subscribing returns a Subscription; each Subscribe call
// runs the source independently.
package stream

import (
	"sync"
	"sync/atomic"
)

type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnCompleted()
}

type Subscription interface {
	Dispose()
}

type Observable[T any] interface {
	Subscribe(o Observer[T]) Subscription
}

// Funcs adapts plain funcs to an Observer. Nil funcs are skipped.
type Funcs[T any] struct {
	Next      func(T)
	Err       func(error)
	Completed func()
}

func (f Funcs[T]) OnNext(v T) {
	if f.Next != nil {
		f.Next(v)
	}
}

func (f Funcs[T]) OnError(err error) {
	if f.Err != nil {
		f.Err(err)
	}
}

func (f Funcs[T]) OnCompleted() {
	if f.Completed != nil {
		f.Completed()
	}
}

type subscription struct {
	once sync.Once
	fn   func()
}

func (s *subscription) Dispose() {
	s.once.Do(func() {
		if s.fn != nil {
			s.fn()
		}
	})
}

// NewSubscription runs fn on the first Dispose.
func NewSubscription(fn func()) Subscription {
	return &subscription{fn: fn}
}

// Nop is a Subscription that holds nothing.
var Nop Subscription = NewSubscription(nil)

// Composite disposes every subscription it holds, in order.
func Composite(subs ...Subscription) Subscription {
	return NewSubscription(func() {
		for _, s := range subs {
			if s != nil {
				s.Dispose()
			}
		}
	})
}

// safeObserver stops delivery after an error, completion or dispose.
type safeObserver[T any] struct {
	inner   Observer[T]
	stopped atomic.Bool
}

func (o *safeObserver[T]) OnNext(v T) {
	if o.stopped.Load() {
		return
	}
	o.inner.OnNext(v)
}

func (o *safeObserver[T]) OnError(err error) {
	if o.stopped.Swap(true) {
		return
	}
	o.inner.OnError(err)
}

func (o *safeObserver[T]) OnCompleted() {
	if o.stopped.Swap(true) {
		return
	}
	o.inner.OnCompleted()
}

type createFunc[T any] func(o Observer[T]) Subscription

func (f createFunc[T]) Subscribe(o Observer[T]) Subscription {
	safe := &safeObserver[T]{inner: o}
	sub := f(safe)
	return NewSubscription(func() {
		safe.stopped.Store(true)
		if sub != nil {
			sub.Dispose()
		}
	})
}

// Create builds an Observable from a subscribe func. The observer passed
// to subscribe ignores everything after an error, completion or dispose.
func Create[T any](subscribe func(o Observer[T]) Subscription) Observable[T] {
	return createFunc[T](subscribe)
}

// Defer calls factory on every Subscribe.
func Defer[T any](factory func() Observable[T]) Observable[T] {
	return Create(func(o Observer[T]) Subscription {
		return factory().Subscribe(o)
	})
}

// Return emits value and completes.
func Return[T any](value T) Observable[T] {
	return Create(func(o Observer[T]) Subscription {
		o.OnNext(value)
		o.OnCompleted()
		return Nop
	})
}

// Throw fails with err on subscribe.
func Throw[T any](err error) Observable[T] {
	return Create(func(o Observer[T]) Subscription {
		o.OnError(err)
		return Nop
	})
}

func Empty[T any]() Observable[T] {
	return Create(func(o Observer[T]) Subscription {
		o.OnCompleted()
		return Nop
	})
}

// Concat subscribes to each source after the previous one completes.
func Concat[T any](sources ...Observable[T]) Observable[T] {
	return Create(func(o Observer[T]) Subscription {
		var (
			mu       sync.Mutex
			current  Subscription
			active   int
			disposed bool
		)

		var next func(i int)
		next = func(i int) {
			if i == len(sources) {
				o.OnCompleted()
				return
			}

			mu.Lock()
			if disposed {
				mu.Unlock()
				return
			}
			active = i
			mu.Unlock()

			sub := sources[i].Subscribe(Funcs[T]{
				Next:      o.OnNext,
				Err:       o.OnError,
				Completed: func() { next(i + 1) },
			})

			mu.Lock()
			// a source that completed synchronously has already moved on
			if disposed || active != i {
				mu.Unlock()
				sub.Dispose()
				return
			}
			current = sub
			mu.Unlock()
		}
		next(0)

		return NewSubscription(func() {
			mu.Lock()
			disposed = true
			sub := current
			current = nil
			mu.Unlock()
			if sub != nil {
				sub.Dispose()
			}
		})
	})
}

// Map applies fn to every value.
func Map[T any, U any](src Observable[T], fn func(T) U) Observable[U] {
	return Create(func(o Observer[U]) Subscription {
		return src.Subscribe(Funcs[T]{
			Next:      func(v T) { o.OnNext(fn(v)) },
			Err:       o.OnError,
			Completed: o.OnCompleted,
		})
	})
}

// Where forwards values matching pred.
func Where[T any](src Observable[T], pred func(T) bool) Observable[T] {
	return Create(func(o Observer[T]) Subscription {
		return src.Subscribe(Funcs[T]{
			Next: func(v T) {
				if pred(v) {
					o.OnNext(v)
				}
			},
			Err:       o.OnError,
			Completed: o.OnCompleted,
		})
	})
}

// DistinctUntilChanged drops values equal to the previous one.
func DistinctUntilChanged[T any](src Observable[T], equal func(a, b T) bool) Observable[T] {
	return Create(func(o Observer[T]) Subscription {
		var (
			last    T
			hasLast bool
		)
		return src.Subscribe(Funcs[T]{
			Next: func(v T) {
				if hasLast && equal(last, v) {
					return
				}
				last, hasLast = v, true
				o.OnNext(v)
			},
			Err:       o.OnError,
			Completed: o.OnCompleted,
		})
	})
}

// Subscribe is shorthand for Subscribe with Funcs.
func Subscribe[T any](src Observable[T], next func(T), err func(error)) Subscription {
	return src.Subscribe(Funcs[T]{Next: next, Err: err})
}
