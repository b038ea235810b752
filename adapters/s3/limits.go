package s3

import (
	"fmt"
	"io"
)

// listingImageTypes 商品圖片允許的 MIME 類型，SVG 可以內嵌腳本所以不在其中
var listingImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ImageExtension 回傳圖片類型對應的副檔名，不允許的類型回傳 false
func ImageExtension(mimeType string) (string, bool) {
	ext, ok := listingImageTypes[mimeType]
	return ext, ok
}

type ReachLimitError struct {
	MaxBytes int64
}

func (e *ReachLimitError) Error() string {
	return fmt.Sprintf("image is larger than %s", FormatBytes(e.MaxBytes))
}

// readLimited 讀取全部內容，多讀一個位元組來判斷是否超過上限
func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > maxSize {
		return nil, &ReachLimitError{MaxBytes: maxSize}
	}
	return content, nil
}

// FormatBytes 以 1024 進位顯示檔案大小
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d bytes", n)
	}
	units := []string{"KB", "MB", "GB", "TB"}
	value := float64(n) / unit
	i := 0
	for value >= unit && i < len(units)-1 {
		value /= unit
		i++
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}
