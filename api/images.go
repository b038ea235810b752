package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"commerce/adapters/s3"
	"commerce/models"
)

// Upload an image
// (POST /images)
func (impl *ServerImpl) PostImage(c *gin.Context) {
	const op = "PostImage"
	if impl.imageStore == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Message: "Image upload is not available."})
		return
	}
	userID := CurrentPrincipal(c).ID
	// 檢查是否達到上傳限制
	if limit := impl.config.S3.RateLimitPerHour; limit > 0 {
		uploaded, err := impl.store.CountImagesSince(c, userID, impl.now().Add(-time.Hour))
		if err != nil {
			impl.abortWithError(c, op, err)
			return
		}
		if uploaded >= limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Message: "Upload limit reached, please try again later."})
			return
		}
	}
	// 限制圖片
	// 	1. 小於5MB
	// 	2. MIME類型為不包含腳本的圖片檔案
	content, mimeType, ext, err := s3.ReadImage(c.Request.Body, s3.MaxImageSize)
	var reachLimit *s3.ReachLimitError
	switch {
	case errors.As(err, &reachLimit):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{Message: reachLimit.Error()})
		return
	case errors.Is(err, s3.ErrUnsupportedImage):
		badRequest(c, fmt.Sprintf("Invalid image type: %s", mimeType))
		return
	case err != nil:
		impl.abortWithError(c, op, fmt.Errorf("[%s] Fail to read image, err=%w", op, err))
		return
	}
	// 透過S3 API儲存圖片
	url, err := impl.imageStore.Upload(c, uuid.New().String()+"."+ext, mimeType, content)
	if err != nil {
		impl.abortWithError(c, op, fmt.Errorf("[%s] Fail to upload image, err=%w", op, err))
		return
	}
	// 紀錄圖片的上傳紀錄
	image := &models.Image{
		UploaderID: userID,
		Url:        url,
	}
	if err := impl.store.CreateImage(c, image); err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	impl.logger.Info("image uploaded", slog.String("user", userID.String()), slog.String("url", url))
	c.Header("Location", url)
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
