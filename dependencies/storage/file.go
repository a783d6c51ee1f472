package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// File a local directory, the FILE_UPLOAD_PATH of single host deployments
type File struct {
	dir string
}

// NewFile storage in dir
func NewFile(dir string) (*File, error) {
	f := &File{}
	return f, f.Init(context.Background(), &url.URL{Scheme: "file", Path: dir})
}

// Init by uri, file:///abs/dir or file://./relative/dir
func (f *File) Init(_ context.Context, u *url.URL) error {
	dir := u.Path
	if u.Host != "" {
		dir = filepath.Join(u.Host, u.Path)
	}
	if dir == "" {
		return errors.New("file storage needs a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f.dir = dir
	return nil
}

// Put write the object into the directory, name must be a plain file name
func (f *File) Put(_ context.Context, name string, reader io.Reader, _ int64, _ string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", status.Errorf(codes.InvalidArgument, "invalid file name %q", name)
	}
	path := filepath.Join(f.dir, name)
	tmp, err := os.CreateTemp(f.dir, "."+name+"-*")
	if err != nil {
		return "", status.Errorf(codes.Internal, "create %s: %v", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err = io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		return "", status.Errorf(codes.Internal, "write %s: %v", name, err)
	}
	if err = tmp.Close(); err != nil {
		return "", status.Errorf(codes.Internal, "write %s: %v", name, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", status.Errorf(codes.Internal, "write %s: %v", name, err)
	}
	return name, nil
}
