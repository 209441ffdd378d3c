package filestorage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"

	"quicksearch-backend/config"
)

type Provider interface {
	UploadArtifact(ctx context.Context, jobID, fileName string, file []byte) error
	GetArtifact(ctx context.Context, jobID, fileName string) ([]byte, error)
	MakeBucket(ctx context.Context) error
}

var Instance Provider

func NewInstance(s3client *minio.Client) {
	Instance = &impl{
		s3client: s3client,
	}
}

type impl struct {
	s3client *minio.Client
}

func (i impl) UploadArtifact(ctx context.Context, jobID, fileName string, file []byte) error {
	_, err := i.s3client.PutObject(ctx,
		config.Conf.S3.BucketName,
		i.artifactPath(jobID, fileName),
		bytes.NewReader(file),
		int64(len(file)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"},
	)
	if err != nil {
		return err
	}
	return nil
}

func (i impl) GetArtifact(ctx context.Context, jobID, fileName string) ([]byte, error) {
	obj, err := i.s3client.GetObject(ctx,
		config.Conf.S3.BucketName,
		i.artifactPath(jobID, fileName),
		minio.GetObjectOptions{},
	)
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	buf := new(bytes.Buffer)
	if _, err = buf.ReadFrom(obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (i impl) MakeBucket(ctx context.Context) error {
	bucketName := config.Conf.S3.BucketName
	exists, err := i.s3client.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return i.s3client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: "us-east-1"})
}

func (i impl) artifactPath(jobID, fileName string) string {
	return fmt.Sprintf("quick-search/%s/%s", jobID, fileName)
}
