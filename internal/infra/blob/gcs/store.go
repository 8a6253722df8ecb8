// Package gcs implements a blob Store on a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"multicompare/internal/blob/core"
)

// Config holds construction parameters. An empty CredentialsFile uses
// application default credentials. Endpoint targets an emulator and disables
// authentication.
type Config struct {
	Bucket          string
	CredentialsFile string
	Endpoint        string
}

// Store is a single-bucket GCS blob store.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// New creates a GCS blob store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	var opts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &Store{client: client, bucket: client.Bucket(cfg.Bucket), name: cfg.Bucket}, nil
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverGCS }

// Bucket returns the configured bucket name.
func (s *Store) Bucket() string { return s.name }

// Close releases the underlying client.
func (s *Store) Close() error { return s.client.Close() }

// Put writes with a DoesNotExist precondition so existing keys fail with ErrExists.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	key, err := core.SanitizeKey(key)
	if err != nil {
		return core.Info{}, err
	}
	w := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.Metadata = core.CloneMetadata(opts.Metadata)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return core.Info{}, mapError(key, err)
	}
	if err := w.Close(); err != nil {
		return core.Info{}, mapError(key, err)
	}
	return toInfo(w.Attrs()), nil
}

// Get returns the object body.
func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	key, err := core.SanitizeKey(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	obj := s.bucket.Object(key)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return core.Info{}, nil, mapError(key, err)
	}
	rc, err := obj.Generation(attrs.Generation).NewReader(ctx)
	if err != nil {
		return core.Info{}, nil, mapError(key, err)
	}
	return toInfo(attrs), rc, nil
}

// Head returns object metadata.
func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	key, err := core.SanitizeKey(key)
	if err != nil {
		return core.Info{}, err
	}
	attrs, err := s.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return core.Info{}, mapError(key, err)
	}
	return toInfo(attrs), nil
}

// Delete removes the object, returning false when it did not exist.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	key, err := core.SanitizeKey(key)
	if err != nil {
		return false, err
	}
	err = s.bucket.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List iterates objects under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, toInfo(attrs))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// PresignURL returns a V4 signed GET URL. Signing needs service account
// credentials; other credential types surface the client's error.
func (s *Store) PresignURL(_ context.Context, key string, opts core.SignedURLOptions) (string, error) {
	if opts.Method != "" && !strings.EqualFold(opts.Method, http.MethodGet) {
		return "", core.ErrUnsupported
	}
	key, err := core.SanitizeKey(key)
	if err != nil {
		return "", err
	}
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = core.DefaultPresignExpiry
	}
	return s.bucket.SignedURL(key, &storage.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(expiry),
		Scheme:  storage.SigningSchemeV4,
	})
}

func toInfo(attrs *storage.ObjectAttrs) core.Info {
	if attrs == nil {
		return core.Info{}
	}
	etag := attrs.Etag
	if etag == "" && len(attrs.MD5) > 0 {
		etag = hex.EncodeToString(attrs.MD5)
	}
	return core.Info{
		Key:          attrs.Name,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		ETag:         etag,
		Metadata:     core.CloneMetadata(attrs.Metadata),
		LastModified: attrs.Updated,
		URL:          attrs.MediaLink,
	}
}

func mapError(key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%w: %s", core.ErrExists, key)
	}
	return err
}
