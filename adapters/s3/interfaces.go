//go:generate mockgen -package=s3 -destination=mock.go -source=interfaces.go

package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// IObjectPutter 是 s3.Client 中上傳物件的部分
type IObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// IImageStore 儲存商品圖片並回傳公開網址
type IImageStore interface {
	Upload(ctx context.Context, name, contentType string, content []byte) (string, error)
}
