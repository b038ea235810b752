package s3_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"commerce/adapters/s3"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestImageStore_Upload(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := s3.NewMockIObjectPutter(ctrl)

	client.EXPECT().PutObject(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
			assert.Equal(t, "images", aws.ToString(in.Bucket))
			assert.Equal(t, "listings/a.png", aws.ToString(in.Key))
			assert.Equal(t, "image/png", aws.ToString(in.ContentType))
			assert.Equal(t, int64(len(pngHeader)), aws.ToInt64(in.ContentLength))
			body, err := io.ReadAll(in.Body)
			require.NoError(t, err)
			assert.Equal(t, pngHeader, body)
			return &awss3.PutObjectOutput{}, nil
		})

	store, err := s3.NewImageStore(client, "images", "https://cdn.example.com/public", s3.WithKeyPrefix("listings/"))
	require.NoError(t, err)

	url, err := store.Upload(context.Background(), "a.png", "image/png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/public/listings/a.png", url)
}

func TestImageStore_UploadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := s3.NewMockIObjectPutter(ctrl)
	client.EXPECT().PutObject(gomock.Any(), gomock.Any()).Return(nil, errors.New("access denied"))

	store, err := s3.NewImageStore(client, "images", "https://cdn.example.com")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "a.png", "image/png", pngHeader)
	assert.Error(t, err)
}

func TestNewImageStore_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := s3.NewMockIObjectPutter(ctrl)

	_, err := s3.NewImageStore(nil, "images", "https://cdn.example.com")
	assert.Error(t, err)
	_, err = s3.NewImageStore(client, "", "https://cdn.example.com")
	assert.Error(t, err)
	_, err = s3.NewImageStore(client, "images", "://bad")
	assert.Error(t, err)
}

func TestReadImage(t *testing.T) {
	content, mimeType, ext, err := s3.ReadImage(bytes.NewReader(pngHeader), s3.MaxImageSize)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, content)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, "png", ext)

	_, mimeType, _, err = s3.ReadImage(strings.NewReader("<svg><script>alert(1)</script></svg>"), s3.MaxImageSize)
	assert.ErrorIs(t, err, s3.ErrUnsupportedImage)
	assert.NotEqual(t, "image/png", mimeType)

	_, _, _, err = s3.ReadImage(bytes.NewReader(bytes.Repeat([]byte{0}, 64)), 16)
	var limitErr *s3.ReachLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, int64(16), limitErr.MaxBytes)
}
