package service

import (
	"fmt"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

const (
	msgFileEmpty    = "The submitted file is empty."
	msgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
)

// 只接受可解码的位图格式，svg 不算图片
var imageMIMEs = []string{
	"image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp", "image/tiff",
}

func checkUpload(field string, fh *multipart.FileHeader) error {
	if fh.Size == 0 {
		return NewValidationError(field, msgFileEmpty)
	}
	return nil
}

// checkImage 按文件头嗅探类型，不信任文件名与 Content-Type
func checkImage(field string, fh *multipart.FileHeader) error {
	if err := checkUpload(field, fh); err != nil {
		return err
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return fmt.Errorf("detect upload type: %w", err)
	}
	if !mimetype.EqualsAny(mt.String(), imageMIMEs...) {
		return NewValidationError(field, msgInvalidImage)
	}
	return nil
}
