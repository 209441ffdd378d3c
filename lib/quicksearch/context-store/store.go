package contextstore

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"quicksearch-backend/models"
	dbmodels "quicksearch-backend/models/db"
)

// Provider необязательный хук персистентности: контекст координации
// восстанавливается после рестарта процесса, источник истины — память.
type Provider interface {
	Load(jobID string) (*models.JobContext, error)
	Save(jobCtx *models.JobContext) error
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Load(jobID string) (*models.JobContext, error) {
	rec := dbmodels.QuickSearchJob{}
	err := i.db.
		Model(&dbmodels.QuickSearchJob{}).
		Where("job_id = ?", jobID).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec.ToContext(), nil
}

func (i impl) Save(jobCtx *models.JobContext) error {
	rec := dbmodels.FromContext(jobCtx)
	existing := dbmodels.QuickSearchJob{}
	err := i.db.
		Model(&dbmodels.QuickSearchJob{}).
		Where("job_id = ?", jobCtx.JobID).
		First(&existing).
		Error
	if err == nil {
		rec.BaseModel = existing.BaseModel
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return i.db.
		Save(&rec).
		Error
}
