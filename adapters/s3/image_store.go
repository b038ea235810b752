package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MaxImageSize 上傳圖片的大小上限
const MaxImageSize = 5 << 20

var ErrUnsupportedImage = errors.New("unsupported image type")

var _ IImageStore = (*ImageStore)(nil)

type ImageStore struct {
	// client 是 S3 客戶端。
	client IObjectPutter
	// bucket 是 S3 存儲桶的名稱。
	bucket string
	// publicEndpoint 是 S3 存儲桶的公開 Endpoint。
	publicEndpoint *url.URL
	keyPrefix      string
}

type ImageStoreOption func(*ImageStore)

// WithKeyPrefix 設置物件名稱的前綴，例如 "listings/"
func WithKeyPrefix(prefix string) ImageStoreOption {
	return func(s *ImageStore) {
		s.keyPrefix = prefix
	}
}

func NewImageStore(client IObjectPutter, bucket, publicBaseURL string, opts ...ImageStoreOption) (*ImageStore, error) {
	const op = "NewImageStore"
	if client == nil {
		return nil, errors.New("s3 client cannot be nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket cannot be empty")
	}
	publicEndpoint, err := url.Parse(publicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse public base URL, err=%w", op, err)
	}
	store := &ImageStore{client: client, bucket: bucket, publicEndpoint: publicEndpoint}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Upload 上傳檔案並回傳公開網址
func (s *ImageStore) Upload(ctx context.Context, name, contentType string, content []byte) (string, error) {
	const op = "ImageStore.Upload"
	key := s.keyPrefix + name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to upload file to S3, err=%w", op, err)
	}
	uri := *s.publicEndpoint
	uri.Path = path.Join("/", uri.Path, key)
	return uri.String(), nil
}

// ReadImage 讀取上傳內容並檢查大小與 MIME 類型
// 超過大小時回傳 *ReachLimitError，不安全的類型回傳 ErrUnsupportedImage
func ReadImage(r io.Reader, maxSize int64) (content []byte, mimeType, ext string, err error) {
	content, err = readLimited(r, maxSize)
	if err != nil {
		return nil, "", "", err
	}
	mimeType = http.DetectContentType(content)
	ext, ok := ImageExtension(mimeType)
	if !ok {
		return nil, mimeType, "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}
	return content, mimeType, ext, nil
}
