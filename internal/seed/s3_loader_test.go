package seed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"stockroom/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves objects from memory.
type fakeS3 struct {
	objects map[string][]byte
	gotKeys []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.gotKeys = append(f.gotKeys, aws.ToString(in.Bucket)+"/"+key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

// mockLoader is a mock implementation of the Loader interface for testing.
type mockLoader struct {
	loadFunc func(ctx context.Context, path string) ([]model.ProductRequest, error)
}

func (m *mockLoader) Load(ctx context.Context, path string) ([]model.ProductRequest, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, path)
	}
	return nil, errors.New("not implemented")
}

func named(names ...string) []model.ProductRequest {
	out := make([]model.ProductRequest, len(names))
	for i, name := range names {
		out[i] = model.ProductRequest{Name: name}
	}
	return out
}

func TestS3Loader_Load(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{
		"catalog/products.ndjson.gz": gzipLines(t, []string{`{"name":"Widget","price":10,"stock":5}`}),
		"catalog/broken.gz":          []byte("plain text"),
	}}
	loader := newS3Loader(client, "stock-bucket", zerolog.Nop())
	ctx := context.Background()

	products, err := loader.Load(ctx, "catalog/products.ndjson.gz")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Widget", products[0].Name)
	assert.Equal(t, "stock-bucket/catalog/products.ndjson.gz", client.gotKeys[0])

	_, err = loader.Load(ctx, "catalog/missing.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket=stock-bucket")

	_, err = loader.Load(ctx, "catalog/broken.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip")
}

func TestFallbackLoader_S3Success(t *testing.T) {
	ctx := context.Background()

	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.ProductRequest, error) {
			assert.Equal(t, "catalog/test.gz", path, "S3 key should have prefix")
			return named("FromS3"), nil
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.ProductRequest, error) {
			t.Error("file loader should not be called when S3 succeeds")
			return nil, errors.New("should not be called")
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "catalog/", true, zerolog.Nop())

	products, err := fallback.Load(ctx, "test.gz")
	require.NoError(t, err)
	assert.Equal(t, "FromS3", products[0].Name)
}

func TestFallbackLoader_S3FailsFallsBackToLocal(t *testing.T) {
	ctx := context.Background()

	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.ProductRequest, error) {
			return nil, errors.New("S3 connection failed")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.ProductRequest, error) {
			assert.Equal(t, "test.gz", path, "local path should not have prefix")
			return named("FromDisk"), nil
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "catalog/", true, zerolog.Nop())

	products, err := fallback.Load(ctx, "test.gz")
	require.NoError(t, err)
	assert.Equal(t, "FromDisk", products[0].Name)
}

func TestFallbackLoader_LocalOnly(t *testing.T) {
	ctx := context.Background()

	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.ProductRequest, error) {
			return named("FromDisk"), nil
		},
	}
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.ProductRequest, error) {
			t.Error("S3 loader should not be called when S3 is disabled")
			return nil, errors.New("should not be called")
		},
	}

	t.Run("S3 disabled", func(t *testing.T) {
		products, err := NewFallbackLoader(s3Loader, fileLoader, "catalog/", false, zerolog.Nop()).Load(ctx, "test.gz")
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})

	t.Run("S3 loader nil", func(t *testing.T) {
		products, err := NewFallbackLoader(nil, fileLoader, "catalog/", true, zerolog.Nop()).Load(ctx, "test.gz")
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})
}

func TestFallbackLoader_BothFail(t *testing.T) {
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.ProductRequest, error) {
			return nil, errors.New("S3 error")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.ProductRequest, error) {
			return nil, errors.New("file not found")
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "catalog/", true, zerolog.Nop())

	products, err := fallback.Load(context.Background(), "test.gz")
	require.Error(t, err)
	assert.Nil(t, products)
	assert.Contains(t, err.Error(), "file not found")
}
