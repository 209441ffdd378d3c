package proofarchive

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	pdfexport "quicksearch-backend/lib/export/pdf"
	filestorage "quicksearch-backend/lib/file-storage"
	"quicksearch-backend/models"
)

// Provider кладёт квитанцию подтверждённой оплаты в объектное хранилище
// и отдаёт её экранам. Шаг необязательный: без настроенного S3 квитанция
// каждый раз формируется заново.
type Provider interface {
	Archive(ctx context.Context, jobCtx *models.JobContext) error
	Receipt(ctx context.Context, jobCtx *models.JobContext) ([]byte, error)
}

func NewInstance() Provider {
	return &impl{}
}

type impl struct{}

func (i impl) Archive(ctx context.Context, jobCtx *models.JobContext) error {
	if filestorage.Instance == nil {
		return nil
	}
	file, err := pdfexport.GenerateProofReceipt(jobCtx)
	if err != nil {
		return errors.Wrap(err, "ошибка генерации квитанции")
	}
	err = filestorage.Instance.UploadArtifact(ctx, jobCtx.JobID, i.fileName(jobCtx), file)
	if err != nil {
		return errors.Wrap(err, "ошибка загрузки квитанции в хранилище")
	}
	return nil
}

// Receipt сперва архив, при промахе квитанция формируется заново
func (i impl) Receipt(ctx context.Context, jobCtx *models.JobContext) ([]byte, error) {
	if filestorage.Instance != nil {
		file, err := filestorage.Instance.GetArtifact(ctx, jobCtx.JobID, i.fileName(jobCtx))
		if err == nil && len(file) > 0 {
			return file, nil
		}
		if err != nil {
			log.WithError(err).
				WithField("job_id", jobCtx.JobID).
				Warn("квитанция не найдена в хранилище, формируется заново")
		}
	}
	file, err := pdfexport.GenerateProofReceipt(jobCtx)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка генерации квитанции")
	}
	return file, nil
}

func (i impl) fileName(jobCtx *models.JobContext) string {
	return fmt.Sprintf("proof-%s.pdf", jobCtx.Payment.ProofNumber)
}
