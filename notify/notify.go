// Package notify defines the property-changed notification capability that
// tracked objects implement, plus an embeddable implementation of it.
package notify

import "sync"

// PropertyChangedEventArgs describes a property change. An empty
// PropertyName means every property of the sender changed.
type PropertyChangedEventArgs struct {
	PropertyName string
}

// Args is shorthand for building event args.
func Args(name string) PropertyChangedEventArgs {
	return PropertyChangedEventArgs{PropertyName: name}
}

// AllChanged is the wildcard event.
var AllChanged = PropertyChangedEventArgs{}

// IsMatch reports whether the event concerns the named property.
func (e PropertyChangedEventArgs) IsMatch(name string) bool {
	return e.PropertyName == "" || e.PropertyName == name
}

type Handler func(sender any, e PropertyChangedEventArgs)

// Notifier is implemented by objects that raise property-changed events.
// The returned func detaches the handler and is safe to call more than once.
type Notifier interface {
	OnPropertyChanged(h Handler) (unsubscribe func())
}

type handlerEntry struct {
	id uint64
	fn Handler
}

// Base is an embeddable Notifier. Embed it by value and call Raise from
// setters with the outer pointer as sender.
type Base struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []handlerEntry
}

func (b *Base) OnPropertyChanged(h Handler) func() {
	if h == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, handlerEntry{id: id, fn: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(id)
		})
	}
}

func (b *Base) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.handlers {
		if e.id == id {
			// copy so snapshots taken by Raise stay intact
			handlers := make([]handlerEntry, 0, len(b.handlers)-1)
			handlers = append(handlers, b.handlers[:i]...)
			b.handlers = append(handlers, b.handlers[i+1:]...)
			return
		}
	}
}

// Raise calls every handler attached at the time of the call, in the order
// they were attached, on the calling goroutine.
func (b *Base) Raise(sender any, propertyName string) {
	b.mu.Lock()
	handlers := b.handlers
	b.mu.Unlock()

	e := Args(propertyName)
	for _, h := range handlers {
		h.fn(sender, e)
	}
}

// HandlerCount returns the number of attached handlers.
func (b *Base) HandlerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

// Set assigns value to field and raises name on b when the value differs.
func Set[T comparable](b *Base, sender any, field *T, value T, name string) bool {
	if *field == value {
		return false
	}
	*field = value
	b.Raise(sender, name)
	return true
}
