package s3source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/Abraxas-365/finrag/datasource"
	"github.com/Abraxas-365/finrag/document"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// API is the subset of the S3 client used by S3Source.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Source loads s3://bucket/key sources.
type S3Source struct {
	client API
	opts   datasource.LoadOptions
}

var _ datasource.Loader = (*S3Source)(nil)

func NewS3Source(client API, opts ...datasource.Option) *S3Source {
	return &S3Source{
		client: client,
		opts:   datasource.ApplyOptions(opts...),
	}
}

// ParseURI splits an s3://bucket/key URI.
func ParseURI(source string) (bucket, key string, err error) {
	u, err := url.Parse(source)
	if err != nil || !strings.EqualFold(u.Scheme, "s3") || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 uri: %q", source)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

func (s *S3Source) Load(ctx context.Context, source string) (<-chan document.Page, <-chan error) {
	return datasource.Stream(ctx, func(emit func(document.Page) bool) error {
		bucket, key, err := ParseURI(source)
		if err != nil || key == "" {
			return &datasource.DataSourceError{
				Source:  source,
				Op:      "Load",
				Err:     err,
				Code:    datasource.ErrCodeInvalidSource,
				Message: "expected s3://bucket/key",
			}
		}

		data, contentType, err := s.getObjectContent(ctx, source, bucket, key)
		if err != nil {
			return err
		}

		pages, err := datasource.Parse(ctx, source, data, contentType, s.opts)
		if err != nil {
			return err
		}
		for _, p := range pages {
			if !emit(p) {
				return nil
			}
		}
		return nil
	})
}

// List returns the s3:// URIs of the loadable objects under prefix.
// Without the recursive option only objects directly under prefix are kept.
func (s *S3Source) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}

	var uris []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &datasource.DataSourceError{
				Source:  "s3://" + bucket + "/" + prefix,
				Op:      "List",
				Err:     err,
				Code:    datasource.ErrCodeInternal,
				Message: "failed to list objects",
			}
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			if !s.opts.Recursive && strings.Contains(strings.TrimPrefix(key, prefix), "/") {
				continue
			}
			if !s.opts.Accept(path.Base(key)) {
				continue
			}
			uris = append(uris, "s3://"+bucket+"/"+key)
		}
	}

	return uris, nil
}

func (s *S3Source) getObjectContent(ctx context.Context, source, bucket, key string) ([]byte, string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	result, err := s.client.GetObject(ctx, input)
	if err != nil {
		code := datasource.ErrCodeInternal
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			code = datasource.ErrCodeNotFound
		}
		return nil, "", &datasource.DataSourceError{
			Source:  source,
			Op:      "getObjectContent",
			Err:     err,
			Code:    code,
			Message: "failed to get object content",
		}
	}
	defer result.Body.Close()

	if s.opts.MaxBytes > 0 && aws.ToInt64(result.ContentLength) > s.opts.MaxBytes {
		return nil, "", &datasource.DataSourceError{
			Source:  source,
			Op:      "getObjectContent",
			Code:    datasource.ErrCodeTooLarge,
			Message: "object exceeds size limit",
		}
	}

	reader := io.Reader(result.Body)
	if s.opts.MaxBytes > 0 {
		reader = io.LimitReader(result.Body, s.opts.MaxBytes+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", &datasource.DataSourceError{
			Source:  source,
			Op:      "getObjectContent",
			Err:     err,
			Code:    datasource.ErrCodeInternal,
			Message: "failed to read object content",
		}
	}
	if s.opts.MaxBytes > 0 && int64(len(content)) > s.opts.MaxBytes {
		return nil, "", &datasource.DataSourceError{
			Source:  source,
			Op:      "getObjectContent",
			Code:    datasource.ErrCodeTooLarge,
			Message: "object exceeds size limit",
		}
	}

	return content, aws.ToString(result.ContentType), nil
}
