// Package s3store implements storage.Client on an S3-compatible bucket.
// Each object is stored as a JSON document under <prefix><path>.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"flashcards/internal/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const typeMetadataKey = "type"

// API is the subset of *s3.Client used by Client.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// Config holds bucket connection settings.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Client implements storage.Client
type Client struct {
	api      API
	bucket   string
	prefix   string
	registry *storage.Registry
	events   storage.Emitter
}

// New creates a client over an existing S3 API
func New(api API, bucket, prefix string) *Client {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Client{
		api:      api,
		bucket:   bucket,
		prefix:   prefix,
		registry: storage.NewRegistry(),
	}
}

// Connect builds an S3 API client from cfg. Static credentials are used when
// an access key is set, the default AWS credential chain otherwise.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO and most self-hosted backends need path-style addressing
			o.UsePathStyle = true
		}
	})

	return New(api, cfg.Bucket, cfg.Prefix), nil
}

func (c *Client) key(p string) string {
	return c.prefix + p
}

func (c *Client) DeclareType(_ context.Context, name string, schema json.RawMessage) error {
	return c.registry.Declare(name, schema)
}

func (c *Client) StoreObject(ctx context.Context, typeName, path string, obj any) error {
	p, err := storage.ObjectPath(path)
	if err != nil {
		return err
	}
	if err := c.registry.Check(typeName); err != nil {
		return err
	}

	body, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode object %q: %w", p, err)
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.key(p)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}
	if typeName != "" {
		in.Metadata = map[string]string{typeMetadataKey: typeName}
	}

	if _, err := c.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("failed to store object %q: %w", p, err)
	}

	c.events.Emit(storage.EventChange, storage.Event{
		Path:     p,
		Origin:   storage.OriginWindow,
		NewValue: body,
	})
	return nil
}

func (c *Client) GetObject(ctx context.Context, path string) (json.RawMessage, error) {
	p, err := storage.ObjectPath(path)
	if err != nil {
		return nil, err
	}
	return c.read(ctx, p)
}

func (c *Client) read(ctx context.Context, p string) (json.RawMessage, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(p)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, p)
		}
		return nil, fmt.Errorf("failed to get object %q: %w", p, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", p, err)
	}
	return json.RawMessage(body), nil
}

// Remove reads the object first so the change event can carry the old value.
func (c *Client) Remove(ctx context.Context, path string) error {
	p, err := storage.ObjectPath(path)
	if err != nil {
		return err
	}

	old, err := c.read(ctx, p)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(p)),
	}); err != nil {
		return fmt.Errorf("failed to remove object %q: %w", p, err)
	}

	c.events.Emit(storage.EventChange, storage.Event{
		Path:     p,
		Origin:   storage.OriginWindow,
		OldValue: old,
	})
	return nil
}

// list walks every page of a delimited listing and returns the folder names
// (with trailing "/") and object names found directly under folder.
func (c *Client) list(ctx context.Context, folder string) ([]string, []string, error) {
	prefix := c.key(folder)
	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var folders, objects []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list %q: %w", folder, err)
		}
		for _, cp := range page.CommonPrefixes {
			if name := strings.TrimPrefix(aws.ToString(cp.Prefix), prefix); name != "" {
				folders = append(folders, name)
			}
		}
		for _, obj := range page.Contents {
			if name := strings.TrimPrefix(aws.ToString(obj.Key), prefix); name != "" {
				objects = append(objects, name)
			}
		}
	}
	return folders, objects, nil
}

func (c *Client) GetListing(ctx context.Context, path string) ([]string, error) {
	folder, err := storage.FolderPath(path)
	if err != nil {
		return nil, err
	}

	folders, objects, err := c.list(ctx, folder)
	if err != nil {
		return nil, err
	}

	listing := append(folders, objects...)
	sort.Strings(listing)
	return listing, nil
}

func (c *Client) GetAll(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	folder, err := storage.FolderPath(path)
	if err != nil {
		return nil, err
	}

	_, objects, err := c.list(ctx, folder)
	if err != nil {
		return nil, err
	}

	all := make(map[string]json.RawMessage, len(objects))
	for _, name := range objects {
		body, err := c.read(ctx, folder+name)
		if errors.Is(err, storage.ErrNotFound) {
			// removed between listing and read
			continue
		}
		if err != nil {
			return nil, err
		}
		all[name] = body
	}
	return all, nil
}

func (c *Client) On(event string, handler storage.Handler) {
	c.events.On(event, handler)
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
