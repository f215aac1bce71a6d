package plugins

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"unicode"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// callback is a validated handler func. Its shape is
// func(context.Context, ...) error.
type callback struct {
	fn    reflect.Value
	ident string
}

// newCallback validates fn and wraps it.
func newCallback(fn any) (callback, error) {
	if fn == nil {
		return callback{}, fmt.Errorf("%w: <nil> must be a func(context.Context, ...) error", ErrInvalidCallback)
	}
	v := reflect.ValueOf(fn)
	ident := funcIdent(v)
	if v.Kind() != reflect.Func || v.IsNil() {
		return callback{}, fmt.Errorf("%w: <%s> must be a func(context.Context, ...) error", ErrInvalidCallback, ident)
	}
	t := v.Type()
	if t.NumIn() == 0 || t.In(0) != contextType || t.IsVariadic() {
		return callback{}, fmt.Errorf("%w: <%s> must take a context.Context as its first parameter", ErrInvalidCallback, ident)
	}
	if t.NumOut() != 1 || t.Out(0) != errorType {
		return callback{}, fmt.Errorf("%w: <%s> must return exactly one error", ErrInvalidCallback, ident)
	}
	return callback{fn: v, ident: ident}, nil
}

// Name returns the short symbol name of the func, or "" for closures.
func (c callback) Name() string {
	return shortFuncName(c.ident)
}

// String returns the fully qualified symbol of the func.
func (c callback) String() string {
	return c.ident
}

// call invokes the callback, passing as many of args as it declares.
func (c callback) call(ctx context.Context, args ...any) error {
	t := c.fn.Type()
	in := make([]reflect.Value, t.NumIn())
	in[0] = reflect.ValueOf(ctx)
	if ctx == nil {
		in[0] = reflect.ValueOf(context.Background())
	}
	for i := 1; i < t.NumIn(); i++ {
		want := t.In(i)
		if i-1 >= len(args) {
			return fmt.Errorf("%w: <%s> wants %d arguments, got %d", ErrArgumentMismatch, c.ident, t.NumIn()-1, len(args))
		}
		arg := args[i-1]
		if arg == nil {
			switch want.Kind() {
			case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
				in[i] = reflect.Zero(want)
				continue
			}
			return fmt.Errorf("%w: <%s> argument %d: nil for %s", ErrArgumentMismatch, c.ident, i, want)
		}
		av := reflect.ValueOf(arg)
		if !av.Type().AssignableTo(want) {
			return fmt.Errorf("%w: <%s> argument %d: %s is not assignable to %s", ErrArgumentMismatch, c.ident, i, av.Type(), want)
		}
		in[i] = av
	}
	out := c.fn.Call(in)
	if err, _ := out[0].Interface().(error); err != nil {
		return err
	}
	return nil
}

func funcIdent(v reflect.Value) string {
	if v.Kind() != reflect.Func || v.IsNil() {
		return v.Type().String()
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return v.Type().String()
}

// shortFuncName turns "github.com/x/y.(*T).onPing-fm" into "onPing".
// Anonymous funcs ("main.init.func1") yield "".
func shortFuncName(ident string) string {
	name := ident
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if isClosureName(name) {
		return ""
	}
	return name
}

func isClosureName(name string) bool {
	if name == "" {
		return true
	}
	if strings.HasPrefix(name, "func") && len(name) > 4 {
		for _, r := range name[4:] {
			if !unicode.IsDigit(r) {
				return false
			}
		}
		return true
	}
	for _, r := range name {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// resolveName picks the explicit name, else the callback's symbol name.
func resolveName(name string, cb callback) (string, error) {
	if name = strings.TrimSpace(name); name != "" {
		return name, nil
	}
	if n := cb.Name(); n != "" {
		return n, nil
	}
	return "", fmt.Errorf("%w: cannot infer a name from <%s>", ErrNameRequired, cb.ident)
}
