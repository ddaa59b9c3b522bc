package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Provider result statuses. "processing" means the municipality queues
// issuance requests and the document must be polled for.
const (
	ProviderIssued     = "issued"
	ProviderProcessing = "processing"
	ProviderRejected   = "rejected"
	ProviderCancelled  = "cancelled"
)

// InvoiceRequest is what the engine sends to the NFS-e provider. Municipal tax
// rules (ISS rate, service codes) live entirely on the provider side.
type InvoiceRequest struct {
	Reference          string    `json:"reference"` // billing period reference, provider-side idempotency key
	AmountCents        int64     `json:"amount_cents"`
	ServiceDescription string    `json:"service_description"`
	CustomerName       string    `json:"customer_name"`
	CustomerDocument   string    `json:"customer_document,omitempty"`
	CompetenceDate     time.Time `json:"competence_date"`
	IssuerDocument     string    `json:"issuer_document"`
}

// InvoiceResult is the provider's answer to an issuance or status request.
type InvoiceResult struct {
	ProviderInvoiceID string `json:"provider_invoice_id"`
	Status            string `json:"status"` // issued | processing | rejected | cancelled
	Message           string `json:"message,omitempty"`
}

// InvoiceProvider abstracts the external tax-document service. NFSeClient is
// the real implementation; MockInvoiceProvider simulates issuance for
// development and for therapists not yet registered with their municipality.
type InvoiceProvider interface {
	RegisterCompany(ctx context.Context, issuerDocument, municipalRegistration string) error
	GenerateInvoice(ctx context.Context, req InvoiceRequest) (*InvoiceResult, error)
	GetInvoiceStatus(ctx context.Context, providerInvoiceID string) (*InvoiceResult, error)
	CancelInvoice(ctx context.Context, providerInvoiceID, reason string) error
	// DownloadPDF fetches the rendered document and writes it under
	// storagePath, returning the relative file name.
	DownloadPDF(ctx context.Context, providerInvoiceID, storagePath string) (string, error)
}

// NFSeClient talks to the NFS-e provider's REST API. Every call carries a
// bounded timeout via the request context; a timeout is a failure to retry,
// never an ambiguous state — the engine only transitions after receiving a
// definite result or the cron re-polls.
type NFSeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewNFSeClient(baseURL, apiKey string) *NFSeClient {
	return &NFSeClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *NFSeClient) RegisterCompany(ctx context.Context, issuerDocument, municipalRegistration string) error {
	body := map[string]string{
		"issuer_document":        issuerDocument,
		"municipal_registration": municipalRegistration,
	}
	return c.do(ctx, http.MethodPost, "/companies", body, nil)
}

func (c *NFSeClient) GenerateInvoice(ctx context.Context, req InvoiceRequest) (*InvoiceResult, error) {
	var result InvoiceResult
	if err := c.do(ctx, http.MethodPost, "/invoices", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *NFSeClient) GetInvoiceStatus(ctx context.Context, providerInvoiceID string) (*InvoiceResult, error) {
	var result InvoiceResult
	if err := c.do(ctx, http.MethodGet, "/invoices/"+providerInvoiceID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *NFSeClient) CancelInvoice(ctx context.Context, providerInvoiceID, reason string) error {
	body := map[string]string{"reason": reason}
	return c.do(ctx, http.MethodPost, "/invoices/"+providerInvoiceID+"/cancel", body, nil)
}

func (c *NFSeClient) DownloadPDF(ctx context.Context, providerInvoiceID, storagePath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/invoices/"+providerInvoiceID+"/pdf", nil)
	if err != nil {
		return "", fmt.Errorf("nfse: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("nfse: provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nfse: provider returned %d", resp.StatusCode)
	}

	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("nfse: create storage dir: %w", err)
	}
	fileName := fmt.Sprintf("nfse_%s.pdf", providerInvoiceID)
	f, err := os.Create(filepath.Join(storagePath, fileName))
	if err != nil {
		return "", fmt.Errorf("nfse: create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("nfse: write pdf: %w", err)
	}
	return fileName, nil
}

func (c *NFSeClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("nfse: marshal payload: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("nfse: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nfse: provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("nfse: provider returned %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("nfse: decode response: %w", err)
		}
	}
	return nil
}
