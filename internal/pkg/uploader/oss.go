package uploader

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"tiered_social/internal/pkg/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

// MaxFileSize 单个文件上限
const MaxFileSize = 20 << 20

// ErrUnsupportedType 不允许的文件类型
var ErrUnsupportedType = errors.New("unsupported file type")

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".mp4": true, ".mov": true, ".webm": true,
}

// Uploader 帖子媒体、头像和封面的对象存储
type Uploader interface {
	UploadFile(ctx context.Context, folder string, file *multipart.FileHeader) (string, error)
}

type AliyunOSSUploader struct {
	bucket *oss.Bucket
	config config.OSSConfig
	now    func() time.Time
}

func NewAliyunOSSUploader(cfg config.OSSConfig) (*AliyunOSSUploader, error) {
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, errors.New("oss config missing")
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, err
	}

	return &AliyunOSSUploader{bucket: bucket, config: cfg, now: time.Now}, nil
}

// ObjectKey folder/YYYYMMDD/uuid.ext
func ObjectKey(folder, filename string, at time.Time) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return path.Join(folder, at.Format("20060102"), uuid.New().String()+ext), nil
}

func (u *AliyunOSSUploader) UploadFile(ctx context.Context, folder string, file *multipart.FileHeader) (string, error) {
	if file.Size > MaxFileSize {
		return "", fmt.Errorf("%s exceeds %d bytes", file.Filename, MaxFileSize)
	}
	key, err := ObjectKey(folder, file.Filename, u.now())
	if err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := u.bucket.PutObject(key, src, oss.WithContext(ctx)); err != nil {
		return "", err
	}

	// bucket 为公共读或挂 CDN
	return fmt.Sprintf("https://%s.%s/%s", u.config.BucketName, u.config.Endpoint, key), nil
}
