// Package storage checks and writes the object-storage sources the bulk
// copies read from.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sparkload/internal/catalog"
	"sparkload/internal/common"
	"sparkload/pkg/errors"
)

// DefaultListLimit caps how many objects CheckSources counts per source.
const DefaultListLimit = 1000

// API is the subset of the S3 client storage uses.
type API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// URI is a parsed s3://bucket/key location.
type URI struct {
	Bucket string
	Key    string
}

// String returns the s3:// form
func (u URI) String() string {
	if u.Key == "" {
		return "s3://" + u.Bucket
	}
	return "s3://" + u.Bucket + "/" + u.Key
}

// IsS3 reports whether s is an s3:// location.
func IsS3(s string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "s3://")
}

// ParseURI parses an s3://bucket/prefix location.
func ParseURI(s string) (URI, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return URI{}, errors.Wrap(err, errors.ErrCodeStorageInvalid, "Invalid storage location").
			WithContext("uri", s)
	}
	if !strings.EqualFold(u.Scheme, "s3") || u.Host == "" {
		return URI{}, errors.New(errors.ErrCodeStorageInvalid,
			fmt.Sprintf("Invalid storage location %q: expected s3://bucket/prefix", s)).
			WithContext("uri", s)
	}
	return URI{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
}

// Source is the result of checking one location.
type Source struct {
	Location  string
	Objects   int
	Bytes     int64
	Truncated bool // listing stopped at the limit
}

// Client reads and writes the warehouse's object-storage sources
type Client struct {
	api    API
	limit  int
	logger *slog.Logger
}

// Options configure NewClient.
type Options struct {
	Region    string
	Anonymous bool // public buckets such as the sample dataset
	Limit     int
}

// NewClient creates an S3-backed client from the default credential chain.
func NewClient(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	region := opts.Region
	if region == "" {
		region = catalog.DefaultRegion
	}

	var api *s3.Client
	if opts.Anonymous {
		api = s3.New(s3.Options{
			Region:      region,
			Credentials: aws.AnonymousCredentials{},
		})
	} else {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageAccess, "Failed to load AWS configuration").
				WithSuggestions("Set AWS_PROFILE or AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY")
		}
		api = s3.NewFromConfig(cfg)
	}
	return New(api, opts.Limit, logger), nil
}

// New wraps an S3 API implementation.
func New(api API, limit int, logger *slog.Logger) *Client {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, limit: limit, logger: logger}
}

// CheckSources lists every location and reports how many objects it
// holds. Local paths and globs are checked on disk. A location with no
// objects is an error.
func (c *Client) CheckSources(ctx context.Context, locations ...string) ([]Source, error) {
	sources := make([]Source, 0, len(locations))
	for _, loc := range locations {
		var (
			src Source
			err error
		)
		if IsS3(loc) {
			src, err = c.checkS3(ctx, loc)
		} else {
			src, err = checkLocal(loc)
		}
		if err != nil {
			return sources, err
		}

		c.logger.Info("source checked",
			"location", loc,
			"objects", src.Objects,
			"bytes", src.Bytes,
			"truncated", src.Truncated)
		sources = append(sources, src)
	}
	return sources, nil
}

func (c *Client) checkS3(ctx context.Context, loc string) (Source, error) {
	uri, err := ParseURI(loc)
	if err != nil {
		return Source{}, err
	}
	if c.api == nil {
		return Source{}, errors.StorageError("No S3 client configured", loc, nil)
	}

	src := Source{Location: loc}
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(uri.Bucket),
		Prefix: aws.String(uri.Key),
	}

	paginator := s3.NewListObjectsV2Paginator(c.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return Source{}, errors.StorageError("Failed to list source objects", loc, err).
				WithSuggestions(
					"Check the bucket name and prefix",
					"Verify your AWS credentials can list the bucket",
				)
		}
		for _, obj := range page.Contents {
			src.Objects++
			src.Bytes += aws.ToInt64(obj.Size)
			if src.Objects >= c.limit {
				src.Truncated = true
				return src, nil
			}
		}
	}

	if src.Objects == 0 {
		return Source{}, errors.New(errors.ErrCodeStorageEmpty,
			fmt.Sprintf("No objects found under %s", loc)).
			WithContext("uri", loc)
	}
	return src, nil
}

func checkLocal(loc string) (Source, error) {
	matches, err := filepath.Glob(loc)
	if err != nil {
		return Source{}, errors.New(errors.ErrCodeStorageInvalid,
			fmt.Sprintf("Invalid path pattern %q: %v", loc, err)).
			WithContext("uri", loc)
	}

	src := Source{Location: loc}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return Source{}, errors.StorageError("Failed to stat source file", m, err)
		}
		if info.IsDir() {
			continue
		}
		src.Objects++
		src.Bytes += info.Size()
	}

	if src.Objects == 0 {
		return Source{}, errors.New(errors.ErrCodeStorageEmpty,
			fmt.Sprintf("No files match %s", loc)).
			WithContext("uri", loc)
	}
	return src, nil
}

// PutJSONPaths uploads the JSONPaths document the event-log copy reads.
// Local destinations are written to disk.
func (c *Client) PutJSONPaths(ctx context.Context, location string, doc catalog.JSONPathsDocument) error {
	body, err := doc.Marshal()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "Failed to render JSONPaths document")
	}

	if !IsS3(location) {
		if err := os.WriteFile(location, body, common.FilePermissionNormal); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageUpload, "Failed to write JSONPaths file").
				WithContext("uri", location)
		}
		return nil
	}

	uri, err := ParseURI(location)
	if err != nil {
		return err
	}
	if uri.Key == "" || strings.HasSuffix(uri.Key, "/") {
		return errors.New(errors.ErrCodeStorageInvalid,
			fmt.Sprintf("JSONPaths location %s must name an object", location)).
			WithContext("uri", location)
	}
	if c.api == nil {
		return errors.StorageError("No S3 client configured", location, nil)
	}

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(uri.Bucket),
		Key:         aws.String(uri.Key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageUpload, "Failed to upload JSONPaths file").
			WithContext("uri", location).
			WithSuggestions("Verify your AWS credentials can write to the bucket")
	}

	c.logger.Info("jsonpaths uploaded", "location", location, "bytes", len(body))
	return nil
}
