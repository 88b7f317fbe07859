// Package notifytest provides notifying object graphs for tests and
// benchmarks.
package notifytest

import (
	"errors"

	"github.com/delaneyj/signalpath/notify"
)

var ErrBoom = errors.New("boom")

type Fake struct {
	notify.Base

	// Public is a plain field, paths through it are rejected.
	Public *Level

	name   string
	value  int
	level1 *Level
	next   *Level
	point  Point
	plain  *Plain
}

func NewFake() *Fake {
	return &Fake{}
}

// Notify raises name without changing anything. Use "" for all properties.
func (f *Fake) Notify(name string) {
	f.Raise(f, name)
}

func (f *Fake) Name() string       { return f.name }
func (f *Fake) SetName(v string)   { notify.Set(&f.Base, f, &f.name, v, "Name") }
func (f *Fake) Value() int         { return f.value }
func (f *Fake) SetValue(v int)     { notify.Set(&f.Base, f, &f.value, v, "Value") }
func (f *Fake) Level1() *Level     { return f.level1 }
func (f *Fake) SetLevel1(v *Level) { notify.Set(&f.Base, f, &f.level1, v, "Level1") }
func (f *Fake) Next() *Level       { return f.next }
func (f *Fake) SetNext(v *Level)   { notify.Set(&f.Base, f, &f.next, v, "Next") }
func (f *Fake) Point() Point       { return f.point }
func (f *Fake) SetPoint(v Point)   { notify.Set(&f.Base, f, &f.point, v, "Point") }
func (f *Fake) Plain() *Plain      { return f.plain }
func (f *Fake) SetPlain(v *Plain)  { notify.Set(&f.Base, f, &f.plain, v, "Plain") }
func (f *Fake) Notifier() notify.Notifier {
	if f.next == nil {
		return nil
	}
	return f.next
}

// WithArg is not a property: it takes an argument.
func (f *Fake) WithArg(n int) int { return n }

type Level struct {
	notify.Base

	name  string
	value int
	next  *Level
	boom  bool

	subscribes int
}

func NewLevel(name string) *Level {
	return &Level{name: name}
}

func (l *Level) Notify(name string) {
	l.Raise(l, name)
}

// OnPropertyChanged counts subscriptions before delegating to Base.
func (l *Level) OnPropertyChanged(h notify.Handler) func() {
	l.subscribes++
	return l.Base.OnPropertyChanged(h)
}

// Subscribes is the number of handlers ever attached.
func (l *Level) Subscribes() int { return l.subscribes }

func (l *Level) Name() string     { return l.name }
func (l *Level) SetName(v string) { notify.Set(&l.Base, l, &l.name, v, "Name") }
func (l *Level) Value() int       { return l.value }
func (l *Level) SetValue(v int)   { notify.Set(&l.Base, l, &l.value, v, "Value") }
func (l *Level) Next() *Level     { return l.next }
func (l *Level) SetNext(v *Level) { notify.Set(&l.Base, l, &l.next, v, "Next") }
func (l *Level) SetBoom(v bool)   { notify.Set(&l.Base, l, &l.boom, v, "Boom") }

// Boom panics with ErrBoom while the boom flag is set.
func (l *Level) Boom() int {
	if l.boom {
		panic(ErrBoom)
	}
	return 0
}

// Point is a value type; properties declared on it cannot be tracked.
type Point struct {
	x int
}

func NewPoint(x int) Point { return Point{x: x} }

func (p Point) X() int { return p.x }

// Plain does not notify.
type Plain struct {
	name  string
	level *Level
}

func NewPlain(name string, level *Level) *Plain {
	return &Plain{name: name, level: level}
}

func (p *Plain) Name() string  { return p.name }
func (p *Plain) Level() *Level { return p.level }

// Chain builds a Level list of the given depth below root.Next. Every level
// has Value set to its depth.
func Chain(root *Fake, depth int) []*Level {
	levels := make([]*Level, depth)
	for i := range levels {
		levels[i] = &Level{value: i + 1}
		if i > 0 {
			levels[i-1].next = levels[i]
		}
	}
	if depth > 0 {
		root.SetNext(levels[0])
	}
	return levels
}
