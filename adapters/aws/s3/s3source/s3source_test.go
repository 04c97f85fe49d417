package s3source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Abraxas-365/finrag/datasource"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	keys    []string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("text/plain"),
	}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for _, k := range f.keys {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func TestParseURI(t *testing.T) {
	bucket, key, err := ParseURI("s3://reports/2024/q3.pdf")
	require.NoError(t, err)
	assert.Equal(t, "reports", bucket)
	assert.Equal(t, "2024/q3.pdf", key)

	_, _, err = ParseURI("https://reports/q3.pdf")
	assert.Error(t, err)
}

func TestS3Source_Load(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"reports/q3.txt": "page one\fpage two"}}

	pages, err := datasource.Collect(NewS3Source(client).Load(context.Background(), "s3://reports/q3.txt"))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "page two", pages[1].Text)
	assert.Equal(t, 2, pages[1].Number)
}

func TestS3Source_LoadErrors(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"reports/big.txt": "0123456789"}}

	tests := []struct {
		name   string
		source *S3Source
		uri    string
		code   string
	}{
		{"missing key", NewS3Source(client), "s3://reports/nope.txt", datasource.ErrCodeNotFound},
		{"bucket only", NewS3Source(client), "s3://reports", datasource.ErrCodeInvalidSource},
		{"too large", NewS3Source(client, datasource.WithMaxBytes(3)), "s3://reports/big.txt", datasource.ErrCodeTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := datasource.Collect(tt.source.Load(context.Background(), tt.uri))
			var dsErr *datasource.DataSourceError
			require.True(t, errors.As(err, &dsErr))
			assert.Equal(t, tt.code, dsErr.Code)
		})
	}
}

func TestS3Source_List(t *testing.T) {
	client := &fakeS3{keys: []string{
		"docs/a.pdf",
		"docs/b.png",
		"docs/",
		"docs/nested/c.txt",
		"other/d.txt",
	}}

	uris, err := NewS3Source(client).List(context.Background(), "reports", "docs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"s3://reports/docs/a.pdf"}, uris)

	uris, err = NewS3Source(client, datasource.WithRecursive(true)).List(context.Background(), "reports", "docs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"s3://reports/docs/a.pdf", "s3://reports/docs/nested/c.txt"}, uris)
}
