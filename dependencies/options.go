package dependencies

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
)

type options struct {
	typeCreators map[reflect.Type]*creator
	sync         bool
}

type creator struct {
	fn      reflect.Value
	withURL bool
}

func (c *creator) argument(uri string) (reflect.Value, error) {
	if !c.withURL {
		return reflect.ValueOf(uri), nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(u), nil
}

func evaluateOptions(opts []Option) *options {
	o := &options{typeCreators: make(map[reflect.Type]*creator)}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Option the option for this module.
type Option func(*options)

var (
	ctxType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
	urlPtrType = reflect.TypeOf((*url.URL)(nil))
	stringType = reflect.TypeOf("")
)

// WithNewFns register creators for interface or struct pointer fields, newFn is
//
//	func(context.Context, *url.URL) (Xxx, error)
//	func(context.Context, string) (Xxx, error)
//
// The creator is picked by the first return type.
func WithNewFns(newFn ...any) Option {
	creators := make(map[reflect.Type]*creator, len(newFn))
	for _, v := range newFn {
		t := reflect.TypeOf(v)
		if t == nil || t.Kind() != reflect.Func || t.NumIn() != 2 || t.NumOut() != 2 ||
			t.In(0) != ctxType || t.Out(1) != errorType || (t.In(1) != urlPtrType && t.In(1) != stringType) {
			panic(fmt.Errorf("function %T is not New(context.Context, *url.URL|string) (Xxx, error)", v))
		}
		creators[t.Out(0)] = &creator{
			fn:      reflect.ValueOf(v),
			withURL: t.In(1) == urlPtrType,
		}
	}
	return func(o *options) {
		for k, v := range creators {
			o.typeCreators[k] = v
		}
	}
}

// WithSync init dependencies one by one
func WithSync() Option {
	return func(o *options) {
		o.sync = true
	}
}
