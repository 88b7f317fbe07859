package path

import (
	"fmt"
	"reflect"
	"strings"
)

// Step is a typed property accessor used by Build.
type Step struct {
	declaring reflect.Type
	name      string
	result    reflect.Type
	get       getterFunc
}

// Prop describes the property name on S read by get.
func Prop[S any, T any](name string, get func(S) T) Step {
	return Step{
		declaring: reflect.TypeFor[S](),
		name:      name,
		result:    reflect.TypeFor[T](),
		get: func(source any) any {
			return get(source.(S))
		},
	}
}

// Build compiles a path from typed accessors without reflecting over
// methods. Each step's declaring type must be the previous step's result
// type, and the first must be *R.
func Build[R any, V any](steps ...Step) (*Path[R, V], error) {
	root := reflect.TypeFor[*R]()
	valueType := reflect.TypeFor[V]()

	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.name
	}
	expr := strings.Join(names, ".")

	if len(steps) == 0 {
		return nil, &InvalidPathError{Expr: expr, Type: root, Reason: "empty expression"}
	}

	segments := make([]*Segment, 0, len(steps))
	want := root
	for i, s := range steps {
		if s.get == nil || s.name == "" {
			return nil, &InvalidPathError{Expr: expr, Segment: s.name, Type: s.declaring, Reason: "step has no name or getter"}
		}
		if s.declaring != want {
			return nil, &InvalidPathError{
				Expr:    expr,
				Segment: s.name,
				Type:    s.declaring,
				Reason:  fmt.Sprintf("expected declaring type %s", want),
			}
		}
		seg, err := newSegment(expr, s.declaring, s.name, s.result, s.get, i == len(steps)-1)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
		want = s.result
	}

	return newPath[R, V](expr, segments, root, valueType)
}
