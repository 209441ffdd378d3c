package db

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	dbmodels "quicksearch-backend/models/db"
)

func AutoMigrateDB() error {
	DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")
	log.Info("Запуск миграций")
	if err := DB.AutoMigrate(&dbmodels.QuickSearchJob{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры QuickSearchJob")
	}
	log.Info("Миграция прошла успешно")
	return nil
}
