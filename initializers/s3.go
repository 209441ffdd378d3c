package initializers

import (
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"

	"quicksearch-backend/config"
	filestorage "quicksearch-backend/lib/file-storage"
)

func InitS3() {
	if config.Conf.S3.Endpoint == "" {
		log.Warn("S3 не настроен, квитанции архивироваться не будут")
		return
	}
	minioClient, err := minio.New(config.Conf.S3.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV2(config.Conf.S3.AccessKey, config.Conf.S3.SecretKey, ""),
		Secure: *config.Conf.S3.UseSSL,
	})
	if err != nil {
		log.WithError(err).Error("Ошибка инициализации клиента S3")
		return
	}

	// Проверка соединения
	_, err = minioClient.ListBuckets(context.Background())
	if err != nil {
		log.WithError(err).Error("S3 соединение не удалось — ListBuckets вернул ошибку")
	}

	filestorage.NewInstance(minioClient)
	if err = filestorage.Instance.MakeBucket(context.Background()); err != nil {
		log.WithError(err).Error("Ошибка создания бакета S3")
	}
	log.Info("S3 клиент успешно инициализирован")
}
