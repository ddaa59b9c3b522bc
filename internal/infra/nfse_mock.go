package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// MockInvoiceProvider simulates a successful NFS-e provider without any
// external call. It sits behind the same InvoiceProvider interface as the real
// client, so the gate's business logic carries no mock-mode conditionals.
type MockInvoiceProvider struct {
	mu     sync.Mutex
	issued map[string]InvoiceRequest // providerInvoiceID → original request
}

func NewMockInvoiceProvider() *MockInvoiceProvider {
	return &MockInvoiceProvider{issued: make(map[string]InvoiceRequest)}
}

func (m *MockInvoiceProvider) RegisterCompany(_ context.Context, _, _ string) error { return nil }

func (m *MockInvoiceProvider) GenerateInvoice(_ context.Context, req InvoiceRequest) (*InvoiceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "MOCK-" + uuid.NewString()[:8]
	m.issued[id] = req
	return &InvoiceResult{ProviderInvoiceID: id, Status: ProviderIssued}, nil
}

func (m *MockInvoiceProvider) GetInvoiceStatus(_ context.Context, providerInvoiceID string) (*InvoiceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.issued[providerInvoiceID]; !ok {
		return nil, fmt.Errorf("mock nfse: unknown invoice %s", providerInvoiceID)
	}
	return &InvoiceResult{ProviderInvoiceID: providerInvoiceID, Status: ProviderIssued}, nil
}

func (m *MockInvoiceProvider) CancelInvoice(_ context.Context, providerInvoiceID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.issued[providerInvoiceID]; !ok {
		return fmt.Errorf("mock nfse: unknown invoice %s", providerInvoiceID)
	}
	delete(m.issued, providerInvoiceID)
	return nil
}

// DownloadPDF renders a clearly-watermarked placeholder document.
func (m *MockInvoiceProvider) DownloadPDF(_ context.Context, providerInvoiceID, storagePath string) (string, error) {
	m.mu.Lock()
	req, ok := m.issued[providerInvoiceID]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("mock nfse: unknown invoice %s", providerInvoiceID)
	}

	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("mock nfse: create storage dir: %w", err)
	}
	fileName := fmt.Sprintf("nfse_%s.pdf", providerInvoiceID)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "NFS-e (SIMULADA)", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Referencia: %s", req.Reference), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Tomador: %s", req.CustomerName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Valor: R$ %.2f", float64(req.AmountCents)/100), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 8, "Documento sem valor fiscal — emitido em modo de simulacao.", "", 1, "L", false, 0, "")

	if err := pdf.OutputFileAndClose(filepath.Join(storagePath, fileName)); err != nil {
		return "", fmt.Errorf("mock nfse: write pdf: %w", err)
	}
	return fileName, nil
}

// compile-time interface checks
var (
	_ InvoiceProvider = (*NFSeClient)(nil)
	_ InvoiceProvider = (*MockInvoiceProvider)(nil)
)
