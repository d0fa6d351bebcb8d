package receipt

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestArchive_Store(t *testing.T) {
	putter := &fakePutter{}
	archive := NewArchive(putter, "receipts-bucket")

	key, err := archive.Store(context.Background(), "user-1", "image/png", pngHeader)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "receipts/user-1/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, "receipts-bucket", *putter.input.Bucket)
	assert.Equal(t, key, *putter.input.Key)
	assert.Equal(t, "image/png", *putter.input.ContentType)
	assert.Equal(t, pngHeader, putter.body)
}

func TestArchive_StoreError(t *testing.T) {
	archive := NewArchive(&fakePutter{err: errors.New("boom")}, "b")
	_, err := archive.Store(context.Background(), "user-1", "image/jpeg", []byte{0xff, 0xd8, 0xff})
	assert.ErrorContains(t, err, "boom")
}
