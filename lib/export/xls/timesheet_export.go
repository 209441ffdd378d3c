package xlsexport

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"quicksearch-backend/models"
	qsapimodels "quicksearch-backend/models/api/quicksearch"
)

const timesheetSheet = "Табель"

// GenerateTimesheet табель учтённого времени по работам квик-серча
func GenerateTimesheet(list []*models.JobContext, now time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(timesheetSheet)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка создания листа")
	}
	f.SetActiveSheet(index)
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return nil, errors.Wrap(err, "ошибка удаления листа по умолчанию")
	}

	headers := []string{"Работа", "Кандидат", "Статус счётчика", "Время", "Ставка/час", "К оплате"}
	row := 0
	row, err = writeHeader(f, timesheetSheet, row, headers)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка записи заголовка")
	}

	for _, jobCtx := range list {
		row++
		candidateID := ""
		if jobCtx.Offer != nil {
			candidateID = jobCtx.Offer.CandidateID
		}
		values := []interface{}{
			jobCtx.JobID,
			candidateID,
			string(jobCtx.Timer.Status),
			qsapimodels.FormatElapsed(jobCtx.Timer.Elapsed(now)),
			jobCtx.Timer.HourlyRate,
			qsapimodels.FormatCost(jobCtx.Timer.Cost(now)),
		}
		for col, value := range values {
			if err = writeColumn(f, timesheetSheet, col+1, row, value); err != nil {
				return nil, errors.Wrap(err, "ошибка записи строки")
			}
		}
	}

	buf := new(bytes.Buffer)
	if err = f.Write(buf); err != nil {
		return nil, errors.Wrap(err, "ошибка сохранения файла")
	}
	return buf.Bytes(), nil
}
