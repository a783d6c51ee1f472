// Package config load the service config from a uri, apply the env overrides
// and create the dependencies.
package config

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/saba2003/devcamper-api/dependencies"
	"github.com/saba2003/devcamper-api/log"
	"github.com/ti/objectbind"
)

// Init initialize config from uri address. For exp: ./configs/config.yaml
// etcd://127.0.0.1:6379/config. If configURI is empty the CONFIG_PATH env or
// the flag c is used.
//
// The env file (ENV_PATH, or config.env next to a local config file) is
// loaded first, variables already set in the process win. Fields tagged
// `env:"NAME"` are overridden by the variable NAME, and ${NAME} in dependency
// uris is expanded.
func Init(ctx context.Context, configURI string, configPtr any, opts ...dependencies.Option) error {
	if configURI == "" {
		configURI = os.Getenv("CONFIG_PATH")
		if configURI == "" {
			configURIAddr := flag.String("c", "configs/config.yaml", "uri to load config")
			flag.Parse()
			configURI = *configURIAddr
		}
	}
	if err := loadEnvFile(envPath(configURI)); err != nil {
		return err
	}
	var cc context.CancelFunc
	if _, ok := ctx.Deadline(); !ok {
		ctx, cc = context.WithTimeout(ctx, 5*time.Second)
	}
	if cc != nil {
		defer cc()
	}
	var err error
	binder, err = objectbind.Bind(ctx, configPtr, configURI)
	if err != nil {
		return fmt.Errorf(" error for start config for %s is %w ", configURI, err)
	}
	if err = applyEnv(reflect.ValueOf(configPtr), os.LookupEnv); err != nil {
		return err
	}
	configValue := reflect.Indirect(reflect.ValueOf(configPtr))
	if logField := configValue.FieldByName("Log"); logField.IsValid() {
		if logConfig, ok := logField.Interface().(log.Config); ok {
			if err = log.Init(logConfig); err != nil {
				return err
			}
		}
		binder.BindField("Log.Level", func(value, _ any) {
			if level, ok := value.(string); ok && level != "" {
				log.SetLevel(level)
			}
		})
	}
	return initDeps(ctx, configURI, configPtr, opts...)
}

var binder *objectbind.Binder

// Binder get the binder for add the hook for some config field.
func Binder() *objectbind.Binder {
	if binder == nil {
		panic("the config may not init")
	}
	return binder
}

func envPath(configURI string) string {
	if p := os.Getenv("ENV_PATH"); p != "" {
		return p
	}
	if strings.Contains(configURI, "://") && !strings.HasPrefix(configURI, "file://") {
		return ""
	}
	return filepath.Join(filepath.Dir(strings.TrimPrefix(configURI, "file://")), "config.env")
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s error for %w", path, err)
	}
	return nil
}

// initDeps create every struct field whose first field is the anonymous
// dependencies.Dependency, the uris are bound from the same config uri.
func initDeps(ctx context.Context, configURI string, configPtr any,
	opts ...dependencies.Option,
) error {
	configType := reflect.TypeOf(configPtr).Elem()
	depType := reflect.TypeOf(dependencies.Dependency{})
	for i := 0; i < configType.NumField(); i++ {
		field := configType.Field(i)
		fieldType := field.Type
		if fieldType.Kind() != reflect.Struct || fieldType.NumField() < 2 {
			continue
		}
		if first := fieldType.Field(0); first.Anonymous && depType.AssignableTo(first.Type) {
			if err := initDepsField(ctx, configPtr, configURI, field, opts...); err != nil {
				return err
			}
		}
	}
	return nil
}

func initDepsField(ctx context.Context, configPtr any, configURI string, field reflect.StructField,
	opts ...dependencies.Option,
) error {
	fieldDep := reflect.ValueOf(configPtr).Elem().FieldByName(field.Name)
	tmpDep := newDepStruct(field.Name, field.Tag)
	if _, err := objectbind.Bind(ctx, tmpDep, configURI, objectbind.WithoutWatch(true)); err != nil {
		return err
	}
	uris := reflect.Indirect(reflect.ValueOf(tmpDep)).Field(0).Interface().(map[string]string)
	if len(uris) == 0 {
		return nil
	}
	for k, v := range uris {
		uris[k] = os.ExpandEnv(v)
	}
	return dependencies.Init(ctx, fieldDep.Addr().Interface(), uris, opts...)
}

func newDepStruct(name string, tag reflect.StructTag) any {
	dataType := reflect.StructOf([]reflect.StructField{
		{
			Name: name,
			Type: reflect.TypeOf(map[string]string{}),
			Tag:  tag,
		},
	})
	return reflect.New(dataType).Interface()
}
