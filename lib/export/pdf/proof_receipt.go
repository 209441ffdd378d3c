package pdfexport

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"quicksearch-backend/models"
	qsapimodels "quicksearch-backend/models/api/quicksearch"
)

// GenerateProofReceipt квитанция о подтверждённой оплате по работе
func GenerateProofReceipt(jobCtx *models.JobContext) (pdfFile []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("GenerateProofReceipt panic recover: %v", r)
		}
	}()
	if jobCtx.Payment.State != models.PaymentStateProofAvailable {
		return nil, errors.New("подтверждение оплаты ещё не сформировано")
	}
	pdf := fpdf.New("P", "mm", "A4", "static/font/")
	pdf.AddPage()
	pdf.AddUTF8Font("Arial", "", "Arial.ttf")
	pdf.AddUTF8Font("Arial", "B", "Arial Bold.ttf")
	pdf.SetFont("Arial", "B", 16)
	if pdf.Error() != nil {
		return nil, pdf.Error()
	}
	pdf.CellFormat(0, 10, "Подтверждение оплаты", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.Ln(6)

	agreement := jobCtx.Payment.Agreement
	amount := agreement.HourlyRate * agreement.ExpectedHours
	lines := []string{
		fmt.Sprintf("Номер подтверждения: %v", jobCtx.Payment.ProofNumber),
		fmt.Sprintf("Работа: %v", jobCtx.JobID),
		fmt.Sprintf("Ставка: %v/час", qsapimodels.FormatCost(agreement.HourlyRate)),
		fmt.Sprintf("Ожидаемые часы: %v", agreement.ExpectedHours),
		fmt.Sprintf("Сумма: %v", qsapimodels.FormatCost(amount)),
	}
	if jobCtx.Payment.ProofIssuedAt != nil {
		lines = append(lines, fmt.Sprintf("Дата: %v", jobCtx.Payment.ProofIssuedAt.Format("02.01.2006 15:04:05")))
	}
	for _, line := range lines {
		pdf.CellFormat(0, 8, line, "", 1, "L", false, 0, "")
	}

	buf := new(bytes.Buffer)
	err = pdf.Output(buf)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка формирования pdf")
	}
	return buf.Bytes(), nil
}
