// Package dependencies create the external services of the api from uri
// strings. For example, the dependencies section of the config:
//
//	dependencies:
//	  db: mongodb://127.0.0.1:27017/devcamper
//	  redis: redis://:PassW0rd@127.0.0.1:6379
//	  cache: memory://local/principals?ttl=1m
//	  broker: kafka://127.0.0.1:9092/devcamper?log=true
//	  storage: s3://key:secret@127.0.0.1:9000/photos
//	  mail: http://127.0.0.1:8025/api/send?timeout=5s
//
// Every field of the target struct is a pointer or an interface. A pointer
// type with an Init(ctx, *url.URL) or Init(ctx, string) method is created
// directly, anything else needs a creator registered by WithNewFns.
package dependencies

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/saba2003/devcamper-api/async"
	"github.com/saba2003/devcamper-api/graceful"
)

// Init initialize every field of dependenciesPtr from its uri in
// dependenciesConfig, the keys are matched case insensitively.
func Init(ctx context.Context, dependenciesPtr any, dependenciesConfig map[string]string,
	opts ...Option,
) error {
	o := evaluateOptions(opts)
	dep := reflect.ValueOf(dependenciesPtr)
	if dep.Kind() != reflect.Ptr || dep.Elem().Kind() != reflect.Struct {
		return errors.New("dependencies must be pointer of struct")
	}
	return initFields(ctx, dep.Elem(), dependenciesConfig, o)
}

const tagRequired = "required"

var dependencyType = reflect.TypeOf(Dependency{})

func initFields(ctx context.Context, depElem reflect.Value, dependenciesConfig map[string]string, o *options) error {
	config := make(map[string]string, len(dependenciesConfig))
	for k, v := range dependenciesConfig {
		config[strings.ToLower(k)] = v
	}
	var future *async.Future
	if !o.sync {
		future = async.New(ctx)
	}
	for i := 0; i < depElem.NumField(); i++ {
		f := depElem.Type().Field(i)
		value := depElem.Field(i)
		if f.Type == dependencyType {
			continue
		}
		if kind := value.Kind(); kind != reflect.Ptr && kind != reflect.Interface {
			if future != nil {
				_ = future.Await()
			}
			return fmt.Errorf("dependency %s 's kind is %s, but expect to pointer or interface", f.Name, kind)
		}
		if !value.IsNil() {
			continue
		}
		uri := config[strings.ToLower(f.Name)]
		if uri == "" {
			if f.Tag.Get(tagRequired) != "false" {
				if future != nil {
					_ = future.Await()
				}
				return fmt.Errorf("dependency %s is required", f.Name)
			}
			continue
		}
		if future == nil {
			if err := initItem(ctx, value, f, uri, o); err != nil {
				return err
			}
			continue
		}
		future.Go(func(ctx context.Context) error {
			return initItem(ctx, value, f, uri, o)
		})
	}
	if future != nil {
		return future.Await()
	}
	return nil
}

// initItem set one field, each field is written by exactly one goroutine.
func initItem(ctx context.Context, value reflect.Value, f reflect.StructField, uri string, o *options) error {
	client, err := create(ctx, f.Type, uri, o)
	if err != nil {
		return fmt.Errorf("init dependency %s by uri %s error for %w", f.Name, redact(uri), err)
	}
	if closer, ok := client.Interface().(dependencyCloser); ok {
		graceful.AddCloser(closer.Close)
	}
	value.Set(client)
	return nil
}

func create(ctx context.Context, t reflect.Type, uri string, o *options) (reflect.Value, error) {
	if c, ok := o.typeCreators[t]; ok {
		arg, err := c.argument(uri)
		if err != nil {
			return reflect.Value{}, err
		}
		return callNew(ctx, c.fn, arg)
	}
	if t.Kind() != reflect.Ptr {
		return reflect.Value{}, errors.New(hint(t.String()))
	}
	rv := reflect.New(t.Elem())
	switch d := rv.Interface().(type) {
	case dependencyInit:
		u, err := url.Parse(uri)
		if err != nil {
			return reflect.Value{}, err
		}
		return rv, d.Init(ctx, u)
	case dependencyInitStr:
		return rv, d.Init(ctx, uri)
	}
	return reflect.Value{}, errors.New(hint(t.String()))
}

func callNew(ctx context.Context, fn reflect.Value, arg reflect.Value) (reflect.Value, error) {
	ret := fn.Call([]reflect.Value{reflect.ValueOf(ctx), arg})
	if last := ret[len(ret)-1].Interface(); last != nil {
		return reflect.Value{}, last.(error)
	}
	return ret[0], nil
}

func hint(fieldType string) string {
	return "type " + fieldType + " does not implement Init(context.Context, *url.URL) error," +
		" register a creator with `dependencies.WithNewFns(func(context.Context, *url.URL) (" +
		fieldType + ", error))`"
}

// redact the password of uri for error messages
func redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<invalid uri>"
	}
	return u.Redacted()
}

// dependencyInit just implement init function
type dependencyInit interface {
	Init(ctx context.Context, uri *url.URL) error
}

// dependencyInitStr init with the raw uri
type dependencyInitStr interface {
	Init(ctx context.Context, data string) error
}

// dependencyCloser is closed by graceful on exit
type dependencyCloser interface {
	Close(ctx context.Context) error
}

// Dependency marks the struct which config.Init fills from uri strings.
// It decodes from nothing, so the uri map never reach the struct itself.
type Dependency struct{}

// UnmarshalJSON Implements the Unmarshaler interface of the json pkg.
func (d *Dependency) UnmarshalJSON(_ []byte) error {
	return nil
}

// MarshalJSON Implements the marshaler interface of the json pkg.
func (d *Dependency) MarshalJSON() ([]byte, error) {
	return []byte("{}"), nil
}

// UnmarshalYAML Implements the Unmarshaler interface of the yaml pkg.
func (d *Dependency) UnmarshalYAML(_ func(any) error) error {
	return nil
}
