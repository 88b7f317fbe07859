package tracker

import (
	"weak"

	"github.com/delaneyj/signalpath/notify"
	"github.com/delaneyj/signalpath/path"
)

type linkState uint8

const (
	unbound linkState = iota
	bound
)

// link tracks one segment of the path for the object currently at that
// position. A bound link holds at most one event handle; rebind always
// releases it before attaching a new one.
type link struct {
	seg         *path.Segment
	state       linkState
	source      any
	resolve     func() any // set instead of source for a weakly held root
	unsubscribe func()
	value       any
	gen         uint64 // invalidates handlers of earlier bindings still in flight
}

// LinkState is a snapshot of one link.
type LinkState struct {
	Segment    *path.Segment
	Bound      bool
	Subscribed bool
	Source     any
	Value      any
}

func (l *link) snapshot() LinkState {
	return LinkState{
		Segment:    l.seg,
		Bound:      l.state == bound,
		Subscribed: l.unsubscribe != nil,
		Source:     l.current(),
		Value:      l.value,
	}
}

func (l *link) current() any {
	if l.resolve != nil {
		return l.resolve()
	}
	return l.source
}

func (l *link) release() {
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	l.gen++
}

func (l *link) unbind() {
	l.release()
	l.state = unbound
	l.source = nil
	l.resolve = nil
	l.value = nil
}

// rebind points the link at source and reports whether that is a change
// worth signalling. Identical sources are a no-op, as is nil to nil.
// onEvent is attached filtered to the segment's property when source
// notifies.
func (l *link) rebind(source any, onEvent func(gen uint64, sender any, e notify.PropertyChangedEventArgs)) (signal bool, err error) {
	if path.IsNil(source) {
		source = nil
	}
	if path.SameRef(l.source, source) {
		return false, nil
	}

	wasBound := l.state == bound
	l.unbind()
	if source == nil {
		return wasBound, nil
	}

	if !l.seg.Accepts(source) {
		return false, &path.GetterError{
			Segment: l.seg.Name(),
			Type:    l.seg.DeclaringType(),
			Err:     errSourceType(source, l.seg),
		}
	}

	l.state = bound
	l.source = source
	if n, ok := source.(notify.Notifier); ok {
		gen := l.gen
		name := l.seg.Name()
		l.unsubscribe = n.OnPropertyChanged(func(sender any, e notify.PropertyChangedEventArgs) {
			if e.IsMatch(name) {
				onEvent(gen, sender, e)
			}
		})
	}
	return true, nil
}

// rootHandle owns the root's subscription in weak mode. Only the handler
// the root holds references it, so it is collected along with the root.
type rootHandle struct {
	unsubscribe func()
	released    bool
}

// bindWeak binds the link to root without the link keeping root reachable.
// resolve returns the root while it is alive.
func (l *link) bindWeak(root any, resolve func() any, onEvent func(gen uint64, sender any, e notify.PropertyChangedEventArgs)) error {
	l.unbind()
	if !l.seg.Accepts(root) {
		return &path.GetterError{
			Segment: l.seg.Name(),
			Type:    l.seg.DeclaringType(),
			Err:     errSourceType(root, l.seg),
		}
	}

	l.state = bound
	l.resolve = resolve
	n, ok := root.(notify.Notifier)
	if !ok {
		return nil
	}
	h := &rootHandle{}
	gen := l.gen
	name := l.seg.Name()
	h.unsubscribe = n.OnPropertyChanged(func(sender any, e notify.PropertyChangedEventArgs) {
		if h.released || !e.IsMatch(name) {
			return
		}
		onEvent(gen, sender, e)
	})
	wh := weak.Make(h)
	l.unsubscribe = func() {
		if h := wh.Value(); h != nil {
			h.released = true
			h.unsubscribe()
		}
	}
	return nil
}

// read refreshes the cached value from the current source.
func (l *link) read() error {
	if l.state == unbound {
		l.value = nil
		return nil
	}
	v, err := l.seg.Get(l.current())
	if err != nil {
		return err
	}
	l.value = v
	return nil
}
