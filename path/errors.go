package path

import (
	"fmt"
	"reflect"
)

// InvalidPathError is returned when a path expression cannot be tracked.
type InvalidPathError struct {
	Expr    string
	Segment string
	Type    reflect.Type
	Reason  string
}

func (e *InvalidPathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("invalid path %q: %s", e.Expr, e.Reason)
	}
	return fmt.Sprintf("invalid path %q: segment %q on %s: %s", e.Expr, e.Segment, typeName(e.Type), e.Reason)
}

// GetterError is returned when a property getter fails while a value is
// being read.
type GetterError struct {
	Segment string
	Type    reflect.Type
	Err     error
}

func (e *GetterError) Error() string {
	return fmt.Sprintf("getter %s.%s failed: %v", typeName(e.Type), e.Segment, e.Err)
}

func (e *GetterError) Unwrap() error {
	return e.Err
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
