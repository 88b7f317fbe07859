package path

import (
	"fmt"
	"reflect"

	"github.com/delaneyj/signalpath/maybe"
	"github.com/delaneyj/signalpath/notify"
	"github.com/pkg/errors"
)

var notifierType = reflect.TypeFor[notify.Notifier]()

type getterFunc func(source any) any

// Segment is one property access in a path. Segments are immutable and
// shared by every tracker built from the same path.
type Segment struct {
	declaring reflect.Type
	name      string
	result    reflect.Type
	get       getterFunc
	isLast    bool
	notifies  bool
}

func (s *Segment) DeclaringType() reflect.Type { return s.declaring }
func (s *Segment) Name() string                { return s.name }
func (s *Segment) ResultType() reflect.Type    { return s.result }
func (s *Segment) IsLast() bool                { return s.isLast }

// SupportsNotification reports whether sources of this segment raise
// property-changed events.
func (s *Segment) SupportsNotification() bool { return s.notifies }

func (s *Segment) String() string {
	return fmt.Sprintf("%s.%s", typeName(s.declaring), s.name)
}

// Get reads the property from source. A nil source yields nil. Typed nil
// pointers and interfaces are returned as untyped nil.
func (s *Segment) Get(source any) (value any, err error) {
	if IsNil(source) {
		return nil, nil
	}
	if !s.Accepts(source) {
		return nil, &GetterError{
			Segment: s.name,
			Type:    s.declaring,
			Err:     errors.Errorf("source of type %T is not a %s", source, typeName(s.declaring)),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if ok {
				cause = errors.WithStack(cause)
			} else {
				cause = errors.Errorf("panic: %v", r)
			}
			value, err = nil, &GetterError{Segment: s.name, Type: s.declaring, Err: cause}
		}
	}()

	value = s.get(source)
	if IsNil(value) {
		return nil, nil
	}
	return value, nil
}

// GetMaybe is Get with None for a nil source.
func (s *Segment) GetMaybe(source any) (maybe.Maybe[any], error) {
	if IsNil(source) {
		return maybe.None[any](), nil
	}
	v, err := s.Get(source)
	if err != nil {
		return maybe.None[any](), err
	}
	return maybe.Some(v), nil
}

// Accepts reports whether source can be read by this segment.
func (s *Segment) Accepts(source any) bool {
	if source == nil {
		return true
	}
	return reflect.TypeOf(source).AssignableTo(s.declaring)
}

// IsNil reports whether v is nil or a typed nil pointer, interface, map,
// slice, chan or func.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// SameRef reports whether a and b refer to the same live object. Values
// that are not references are never the same unless both are nil.
func SameRef(a, b any) bool {
	aNil, bNil := IsNil(a), IsNil(b)
	if aNil || bNil {
		return aNil && bNil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() != bv.Type() {
		return false
	}
	switch av.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return av.Pointer() == bv.Pointer()
	default:
		return false
	}
}

func isReferenceKind(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface
}

// newSegment validates and builds a segment. last is the position of the
// segment in its path.
func newSegment(expr string, declaring reflect.Type, name string, result reflect.Type, get getterFunc, last bool) (*Segment, error) {
	fail := func(reason string) error {
		return &InvalidPathError{Expr: expr, Segment: name, Type: declaring, Reason: reason}
	}
	if !isReferenceKind(declaring) {
		return nil, fail("declaring type is a value type, changes to a copy cannot be observed")
	}
	notifies := declaring.Implements(notifierType)
	if !last && !notifies {
		return nil, fail("declaring type does not implement notify.Notifier")
	}
	return &Segment{
		declaring: declaring,
		name:      name,
		result:    result,
		get:       get,
		isLast:    last,
		notifies:  notifies,
	}, nil
}
