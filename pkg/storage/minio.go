// Package storage 提供了将失败报告上传到对象存储（MinIO）的功能。
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"starkeys-go/internal/config"
	"starkeys-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReportUploader 定义了失败报告的上传接口。
type ReportUploader interface {
	Upload(ctx context.Context, localPath, objectName string) error
}

type minioUploader struct {
	client *minio.Client
	bucket string
}

// NewReportUploader 初始化 MinIO 客户端并确保存储桶存在。Endpoint 为空时返回 nil。
func NewReportUploader(ctx context.Context, cfg config.MinIOConfig) (ReportUploader, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}
	return &minioUploader{client: client, bucket: cfg.BucketName}, nil
}

// Upload 将本地文件上传为 objectName。
func (u *minioUploader) Upload(ctx context.Context, localPath, objectName string) error {
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	info, err := u.client.FPutObject(ctx, u.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return fmt.Errorf("上传失败报告到 MinIO 失败: %w", err)
	}
	log.Infof("失败报告已上传: bucket=%s object=%s size=%d", u.bucket, info.Key, info.Size)
	return nil
}

func contentType(path string) string {
	if filepath.Ext(path) == ".csv" {
		return "text/csv"
	}
	return "application/octet-stream"
}
