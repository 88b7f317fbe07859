// Package path compiles property-path expressions into immutable chains of
// segments.
//
// A property is an exported method with no arguments and a single result,
// so for
//
//	type Fake struct{ ... }
//	func (f *Fake) Level1() *Level
//	func (l *Level) Name() string
//
// the expression "Level1.Name" on *Fake is the path root.Level1().Name().
// Every non-terminal declaring type must implement notify.Notifier.
package path

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/delaneyj/signalpath/maybe"
)

// Path is a compiled property path from *R to a value of type V.
type Path[R any, V any] struct {
	expr     string
	id       uint64
	segments []*Segment
}

func (p *Path[R, V]) Expr() string { return p.expr }

// ID is a fingerprint of the root type, value type and expression.
func (p *Path[R, V]) ID() uint64 { return p.id }

func (p *Path[R, V]) Len() int { return len(p.segments) }

func (p *Path[R, V]) At(i int) *Segment { return p.segments[i] }

func (p *Path[R, V]) Last() *Segment { return p.segments[len(p.segments)-1] }

// Segments returns a copy of the segments.
func (p *Path[R, V]) Segments() []*Segment {
	out := make([]*Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

func (p *Path[R, V]) String() string { return p.expr }

// SourceAndValue walks the path from src. source is the object owning the
// terminal property; value is None when src or an intermediate is nil.
func (p *Path[R, V]) SourceAndValue(src *R) (source any, value maybe.Maybe[V], err error) {
	var current any
	if src != nil {
		current = src
	}
	last := len(p.segments) - 1
	for i, seg := range p.segments {
		if current == nil {
			return nil, maybe.None[V](), nil
		}
		if i == last {
			source = current
		}
		current, err = seg.Get(current)
		if err != nil {
			return nil, maybe.None[V](), err
		}
	}
	v, err := Cast[V](p.Last(), current)
	if err != nil {
		return nil, maybe.None[V](), err
	}
	return source, maybe.Some(v), nil
}

// Value walks the path from src.
func (p *Path[R, V]) Value(src *R) (maybe.Maybe[V], error) {
	_, v, err := p.SourceAndValue(src)
	return v, err
}

// ValueOrDefault returns fallback when the path cannot be evaluated.
func (p *Path[R, V]) ValueOrDefault(src *R, fallback V) (V, error) {
	v, err := p.Value(src)
	if err != nil {
		return fallback, err
	}
	return v.ValueOr(fallback), nil
}

// Cast converts a value read by seg to V. nil becomes the zero V.
func Cast[V any](seg *Segment, value any) (V, error) {
	var zero V
	if value == nil {
		return zero, nil
	}
	v, ok := value.(V)
	if !ok {
		return zero, &GetterError{
			Segment: seg.name,
			Type:    seg.declaring,
			Err:     fmt.Errorf("value of type %T is not a %s", value, reflect.TypeFor[V]()),
		}
	}
	return v, nil
}

// Parse compiles expr against *R using reflection.
func Parse[R any, V any](expr string) (*Path[R, V], error) {
	root := reflect.TypeFor[*R]()
	valueType := reflect.TypeFor[V]()

	if strings.TrimSpace(expr) == "" {
		return nil, &InvalidPathError{Expr: expr, Type: root, Reason: "empty expression"}
	}
	names := strings.Split(expr, ".")

	segments := make([]*Segment, 0, len(names))
	declaring := root
	for i, name := range names {
		last := i == len(names)-1
		result, get, err := resolve(expr, declaring, name)
		if err != nil {
			return nil, err
		}
		seg, err := newSegment(expr, declaring, name, result, get, last)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
		declaring = result
	}

	return newPath[R, V](expr, segments, root, valueType)
}

// MustParse is Parse that panics on error.
func MustParse[R any, V any](expr string) *Path[R, V] {
	p, err := Parse[R, V](expr)
	if err != nil {
		panic(err)
	}
	return p
}

func resolve(expr string, declaring reflect.Type, name string) (reflect.Type, getterFunc, error) {
	fail := func(reason string) error {
		return &InvalidPathError{Expr: expr, Segment: name, Type: declaring, Reason: reason}
	}
	if name == "" {
		return nil, nil, fail("empty property name")
	}

	m, ok := declaring.MethodByName(name)
	if !ok {
		if isField(declaring, name) {
			return nil, nil, fail("is a field, not a property")
		}
		return nil, nil, fail("no such property")
	}

	ft := m.Type
	in := ft.NumIn()
	if declaring.Kind() != reflect.Interface {
		// receiver
		in--
	}
	if in != 0 || ft.NumOut() != 1 {
		return nil, nil, fail(fmt.Sprintf("property must take no arguments and return one value, has signature %s", ft))
	}
	result := ft.Out(0)

	if declaring.Kind() == reflect.Interface {
		return result, func(source any) any {
			return reflect.ValueOf(source).MethodByName(name).Call(nil)[0].Interface()
		}, nil
	}
	fn := m.Func
	return result, func(source any) any {
		return fn.Call([]reflect.Value{reflect.ValueOf(source)})[0].Interface()
	}, nil
}

func isField(t reflect.Type, name string) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	_, ok := t.FieldByName(name)
	return ok
}

func newPath[R any, V any](expr string, segments []*Segment, root, valueType reflect.Type) (*Path[R, V], error) {
	last := segments[len(segments)-1]
	if !last.result.AssignableTo(valueType) {
		return nil, &InvalidPathError{
			Expr:    expr,
			Segment: last.name,
			Type:    last.declaring,
			Reason:  fmt.Sprintf("result type %s is not assignable to %s", last.result, valueType),
		}
	}
	return &Path[R, V]{
		expr:     expr,
		id:       fingerprint(root, valueType, expr),
		segments: segments,
	}, nil
}

func fingerprint(root, value reflect.Type, expr string) uint64 {
	d := xxhash.New()
	d.WriteString(root.String())
	d.WriteString("|")
	d.WriteString(value.String())
	d.WriteString("|")
	d.WriteString(expr)
	return d.Sum64()
}
