// Package storage the object storage of the uploaded files.
//
//	s3://key:secret@127.0.0.1:9000/photos?secure=true
//	file:///var/devcamper/uploads
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// Storage put an object and return the name it is served by
type Storage interface {
	Put(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error)
}

var implements = map[string]func(ctx context.Context, u *url.URL) (Storage, error){
	"s3": func(ctx context.Context, u *url.URL) (Storage, error) {
		s := &S3{}
		return s, s.Init(ctx, u)
	},
	"file": func(ctx context.Context, u *url.URL) (Storage, error) {
		f := &File{}
		return f, f.Init(ctx, u)
	},
}

// Store the storage chosen by the uri scheme
type Store struct {
	Storage
}

// New storage by uri
func New(ctx context.Context, uri string) (*Store, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	s := &Store{}
	return s, s.Init(ctx, u)
}

// Init by uri
func (s *Store) Init(ctx context.Context, u *url.URL) (err error) {
	newFn, ok := implements[u.Scheme]
	if !ok {
		return fmt.Errorf("storage %s not implement", u.Scheme)
	}
	s.Storage, err = newFn(ctx, u)
	return err
}
