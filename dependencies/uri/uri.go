// Package uri decode a dependency uri into an options struct.
//
//	redis://:pass@host1:6379,host2:6379/0?keyPrefix=dc&keyValidity=5s
//
// Scheme, Host, Username, Password and Namespace (the path without the leading
// slash) are filled when the struct has such fields, the query values fill the
// fields by case insensitive name, a dot selects a nested struct field.
package uri

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
)

// Unmarshal parses the URL-encoded data and stores the result.
func Unmarshal(uri *url.URL, v any) error {
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Ptr || target.Elem().Kind() != reflect.Struct {
		return errors.New("target must be pointer of struct")
	}
	data := map[string]string{}
	fields := fieldNames(target.Elem().Type())
	if fields["scheme"] {
		data["scheme"] = uri.Scheme
	}
	if fields["host"] {
		data["host"] = uri.Host
	}
	if user := uri.User; user != nil {
		if fields["username"] {
			data["username"] = user.Username()
		}
		if password, _ := user.Password(); password != "" && fields["password"] {
			data["password"] = password
		}
	}
	if len(uri.Path) > 1 && fields["namespace"] {
		data["namespace"] = uri.Path[1:]
	}
	for k, vs := range uri.Query() {
		if len(vs) > 0 {
			data[k] = vs[0]
		} else {
			data[k] = ""
		}
	}
	return DecodeMap(data, v)
}

// DecodeQuery decode url query as a object.
func DecodeQuery(query url.Values, v any) error {
	data := make(map[string]string, len(query))
	for k, vs := range query {
		if len(vs) > 0 {
			data[k] = vs[0]
		}
	}
	return DecodeMap(data, v)
}

// DecodeMap decode flat keys into the struct behind v, unknown keys are ignored.
func DecodeMap(data map[string]string, v any) error {
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Ptr || target.Elem().Kind() != reflect.Struct {
		return errors.New("target must be pointer of struct")
	}
	for key, value := range data {
		field, ok := lookupField(target.Elem(), strings.Split(key, "."))
		if !ok {
			continue
		}
		if err := setField(field, value); err != nil {
			return &FieldError{Key: key, Value: value, Err: err}
		}
	}
	return nil
}

// FieldError a value which can not be decoded into its field
type FieldError struct {
	Key   string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return "uri option " + e.Key + "=" + e.Value + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldNames(t reflect.Type) map[string]bool {
	names := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		names[strings.ToLower(t.Field(i).Name)] = true
	}
	return names
}
