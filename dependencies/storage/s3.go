package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/saba2003/devcamper-api/dependencies/uri"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// S3 a bucket of an s3 compatible server
type S3 struct {
	client *minio.Client
	bucket string
}

type s3Opts struct {
	Host      string
	Username  string
	Password  string
	Namespace string
	Secure    bool
	Region    string
}

// Init by uri, the bucket is created when missing
func (s *S3) Init(ctx context.Context, u *url.URL) error {
	var o s3Opts
	if err := uri.Unmarshal(u, &o); err != nil {
		return err
	}
	if o.Namespace == "" || strings.Contains(o.Namespace, "/") {
		return errors.New("s3 uri needs one bucket as path")
	}
	client, err := minio.New(o.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(o.Username, o.Password, ""),
		Secure: o.Secure,
		Region: o.Region,
	})
	if err != nil {
		return err
	}
	s.client = client
	s.bucket = o.Namespace
	exists, err := client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: o.Region})
}

// Put upload the object, size -1 streams an unknown length
func (s *S3) Put(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", status.Errorf(codes.Unavailable, "upload %s: %v", name, err)
	}
	return name, nil
}
