package infra

// pdf.go — payment receipt (recibo) generation using go-pdf/fpdf.
// Therapists send these to patients after confirming a payment; the receipt
// cites the billing reference and the billed sessions so the patient can
// reconcile it against their own bank statement.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kupferco/lv-notas/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateReceiptPDF writes a payment receipt for a paid billing period.
// Returns the file name relative to storagePath.
func GenerateReceiptPDF(payment *model.Payment, period *model.BillingPeriod, patient *model.Patient, therapist *model.Therapist, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("recibo_%s.pdf", payment.ID)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, "RECIBO DE PAGAMENTO", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, therapist.Name, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// ── Body ─────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Paciente: %s", patient.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Competencia: %02d/%04d", period.Month, period.Year), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Sessoes: %d", period.SessionCount), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Referencia: %s", period.Reference), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Forma de pagamento: %s", payment.Method), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Data do pagamento: %s", payment.PaymentDate.Format("02/01/2006")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// ── Total ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 8, fmt.Sprintf("Valor recebido: R$ %.2f", float64(payment.AmountCents)/100), "T", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write receipt: %w", err)
	}
	return fileName, nil
}
