package service_test

// stubs_test.go
// In-memory repository stubs shared by the service tests. Each stub carries a
// compile-time interface check so signature drift fails the build, not the
// test run.

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/kupferco/lv-notas/internal/infra"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── BillingPeriodRepository stub ─────────────────────────────────────────────

type stubPeriodRepo struct {
	periods map[uuid.UUID]*model.BillingPeriod

	// beforeCreate, when set, runs at the top of Create. Lets a test slip a
	// competing row in after the pre-flight check, like a concurrent request.
	beforeCreate func()
}

func newStubPeriodRepo() *stubPeriodRepo {
	return &stubPeriodRepo{periods: make(map[uuid.UUID]*model.BillingPeriod)}
}

func (r *stubPeriodRepo) DB() *gorm.DB { return nil }

func (r *stubPeriodRepo) Create(_ context.Context, _ *gorm.DB, p *model.BillingPeriod) error {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	for _, existing := range r.periods {
		if existing.TherapistID == p.TherapistID && existing.PatientID == p.PatientID &&
			existing.Year == p.Year && existing.Month == p.Month && existing.Status != model.PeriodVoid {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for i := range p.Snapshots {
		p.Snapshots[i].ID = uuid.New()
		p.Snapshots[i].BillingPeriodID = p.ID
	}
	cloned := *p
	r.periods[p.ID] = &cloned
	return nil
}

func (r *stubPeriodRepo) FindByID(_ context.Context, id uuid.UUID) (*model.BillingPeriod, error) {
	p, ok := r.periods[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cloned := *p
	return &cloned, nil
}

func (r *stubPeriodRepo) FindByIDForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.BillingPeriod, error) {
	return r.FindByID(ctx, id)
}

func (r *stubPeriodRepo) FindActiveByKey(_ context.Context, therapistID, patientID uuid.UUID, year, month int) (*model.BillingPeriod, error) {
	for _, p := range r.periods {
		if p.TherapistID == therapistID && p.PatientID == patientID &&
			p.Year == year && p.Month == month && p.Status != model.PeriodVoid {
			cloned := *p
			return &cloned, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPeriodRepo) ListNonVoidByPatient(_ context.Context, _ *gorm.DB, patientID uuid.UUID) ([]model.BillingPeriod, error) {
	var out []model.BillingPeriod
	for _, p := range r.periods {
		if p.PatientID == patientID && p.Status != model.PeriodVoid {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (r *stubPeriodRepo) ListUnpaidForMatching(_ context.Context, therapistID uuid.UUID, from, to time.Time) ([]model.BillingPeriod, error) {
	var out []model.BillingPeriod
	for _, p := range r.periods {
		if p.TherapistID != therapistID || p.Status != model.PeriodProcessed {
			continue
		}
		end := p.MonthEnd()
		if end.Before(from) || end.After(to.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *stubPeriodRepo) ListByTherapistMonth(_ context.Context, therapistID uuid.UUID, year, month int) ([]model.BillingPeriod, error) {
	var out []model.BillingPeriod
	for _, p := range r.periods {
		if p.TherapistID == therapistID && p.Year == year && p.Month == month && p.Status != model.PeriodVoid {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubPeriodRepo) UpdateStatusTx(_ *gorm.DB, id uuid.UUID, status string) error {
	p, ok := r.periods[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Status = status
	return nil
}

func (r *stubPeriodRepo) UpdateVoidTx(_ *gorm.DB, id uuid.UUID, reason string) error {
	p, ok := r.periods[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Status = model.PeriodVoid
	p.VoidReason = &reason
	return nil
}

var _ repository.BillingPeriodRepository = (*stubPeriodRepo)(nil)

// ── PatientRepository stub ───────────────────────────────────────────────────

type stubPatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func newStubPatientRepo() *stubPatientRepo {
	return &stubPatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
}

func (r *stubPatientRepo) Create(_ context.Context, p *model.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cloned := *p
	r.patients[p.ID] = &cloned
	return nil
}

func (r *stubPatientRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cloned := *p
	return &cloned, nil
}

func (r *stubPatientRepo) ListByTherapist(_ context.Context, therapistID uuid.UUID, includeInactive bool) ([]model.Patient, error) {
	var out []model.Patient
	for _, p := range r.patients {
		if p.TherapistID != therapistID {
			continue
		}
		if !includeInactive && !p.Active {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubPatientRepo) Update(_ context.Context, p *model.Patient) error {
	cloned := *p
	r.patients[p.ID] = &cloned
	return nil
}

func (r *stubPatientRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	p, ok := r.patients[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Active = false
	return nil
}

var _ repository.PatientRepository = (*stubPatientRepo)(nil)

// ── PaymentRepository stub ───────────────────────────────────────────────────

type stubPaymentRepo struct {
	payments map[uuid.UUID]*model.Payment
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{payments: make(map[uuid.UUID]*model.Payment)}
}

func (r *stubPaymentRepo) DB() *gorm.DB { return nil }

func (r *stubPaymentRepo) CreateTx(_ context.Context, _ *gorm.DB, p *model.Payment) error {
	if p.BankTransactionID != nil {
		for _, existing := range r.payments {
			if existing.BankTransactionID != nil && *existing.BankTransactionID == *p.BankTransactionID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	cloned := *p
	r.payments[p.ID] = &cloned
	return nil
}

func (r *stubPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cloned := *p
	return &cloned, nil
}

func (r *stubPaymentRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.payments, id)
	return nil
}

func (r *stubPaymentRepo) CountByPeriodTx(_ *gorm.DB, periodID uuid.UUID) (int64, error) {
	var count int64
	for _, p := range r.payments {
		if p.BillingPeriodID == periodID {
			count++
		}
	}
	return count, nil
}

func (r *stubPaymentRepo) IsTransactionClaimedTx(_ *gorm.DB, transactionID uuid.UUID) (bool, error) {
	for _, p := range r.payments {
		if p.BankTransactionID != nil && *p.BankTransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

var _ repository.PaymentRepository = (*stubPaymentRepo)(nil)

// ── BankTransactionRepository stub ───────────────────────────────────────────

type stubTxnRepo struct {
	txns    map[uuid.UUID]*model.BankTransaction
	claimed map[uuid.UUID]bool
}

func newStubTxnRepo() *stubTxnRepo {
	return &stubTxnRepo{
		txns:    make(map[uuid.UUID]*model.BankTransaction),
		claimed: make(map[uuid.UUID]bool),
	}
}

func (r *stubTxnRepo) BulkInsert(_ context.Context, txns []model.BankTransaction) (int, error) {
	inserted := 0
	for i := range txns {
		dup := false
		for _, existing := range r.txns {
			if existing.ExternalID == txns[i].ExternalID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		t := txns[i]
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		r.txns[t.ID] = &t
		inserted++
	}
	return inserted, nil
}

func (r *stubTxnRepo) FindByID(_ context.Context, id uuid.UUID) (*model.BankTransaction, error) {
	t, ok := r.txns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cloned := *t
	return &cloned, nil
}

func (r *stubTxnRepo) ListUnclaimedInRange(_ context.Context, therapistID uuid.UUID, start, end time.Time) ([]model.BankTransaction, error) {
	var out []model.BankTransaction
	for _, t := range r.txns {
		if t.TherapistID != therapistID || r.claimed[t.ID] {
			continue
		}
		if t.Date.Before(start) || t.Date.After(end) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

var _ repository.BankTransactionRepository = (*stubTxnRepo)(nil)

// ── InvoiceRepository stub ───────────────────────────────────────────────────

type stubInvoiceRepo struct {
	invoices map[uuid.UUID]*model.Invoice
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{invoices: make(map[uuid.UUID]*model.Invoice)}
}

func (r *stubInvoiceRepo) Create(_ context.Context, inv *model.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.CreatedAt = time.Now()
	cloned := *inv
	r.invoices[inv.ID] = &cloned
	return nil
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cloned := *inv
	return &cloned, nil
}

func (r *stubInvoiceRepo) FindBlockingByPeriod(_ context.Context, periodID uuid.UUID) (*model.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.BillingPeriodID == periodID &&
			(inv.Status == model.InvoiceIssued || inv.Status == model.InvoiceProcessing) {
			cloned := *inv
			return &cloned, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInvoiceRepo) ListByPeriod(_ context.Context, periodID uuid.UUID) ([]model.Invoice, error) {
	var out []model.Invoice
	for _, inv := range r.invoices {
		if inv.BillingPeriodID == periodID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *stubInvoiceRepo) Update(_ context.Context, inv *model.Invoice) error {
	cloned := *inv
	r.invoices[inv.ID] = &cloned
	return nil
}

func (r *stubInvoiceRepo) ListPendingStatusChecks(_ context.Context, now time.Time, limit int) ([]model.Invoice, error) {
	var out []model.Invoice
	for _, inv := range r.invoices {
		if inv.Status == model.InvoiceProcessing && inv.NextRetryAt != nil && !inv.NextRetryAt.After(now) {
			out = append(out, *inv)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

var _ repository.InvoiceRepository = (*stubInvoiceRepo)(nil)

// ── TherapistRepository stub ─────────────────────────────────────────────────

type stubTherapistRepo struct {
	therapists map[uuid.UUID]*model.Therapist
}

func newStubTherapistRepo() *stubTherapistRepo {
	return &stubTherapistRepo{therapists: make(map[uuid.UUID]*model.Therapist)}
}

func (r *stubTherapistRepo) Create(_ context.Context, t *model.Therapist) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cloned := *t
	r.therapists[t.ID] = &cloned
	return nil
}

func (r *stubTherapistRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Therapist, error) {
	t, ok := r.therapists[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cloned := *t
	return &cloned, nil
}

func (r *stubTherapistRepo) FindByEmail(_ context.Context, email string) (*model.Therapist, error) {
	for _, t := range r.therapists {
		if t.Email == email {
			cloned := *t
			return &cloned, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubTherapistRepo) Update(_ context.Context, t *model.Therapist) error {
	cloned := *t
	r.therapists[t.ID] = &cloned
	return nil
}

var _ repository.TherapistRepository = (*stubTherapistRepo)(nil)

// ── SessionSource stub ───────────────────────────────────────────────────────

type stubSessionSource struct {
	events []infra.SessionEvent
	err    error
}

func (s *stubSessionSource) GetSessions(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]infra.SessionEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

var _ infra.SessionSource = (*stubSessionSource)(nil)

// ── InvoiceProvider stub ─────────────────────────────────────────────────────

type stubInvoiceProvider struct {
	generateResult *infra.InvoiceResult
	generateErr    error
	statusResult   *infra.InvoiceResult
	statusErr      error
	cancelErr      error
	generateCalls  int
}

func (p *stubInvoiceProvider) RegisterCompany(_ context.Context, _, _ string) error { return nil }

func (p *stubInvoiceProvider) GenerateInvoice(_ context.Context, _ infra.InvoiceRequest) (*infra.InvoiceResult, error) {
	p.generateCalls++
	if p.generateErr != nil {
		return nil, p.generateErr
	}
	return p.generateResult, nil
}

func (p *stubInvoiceProvider) GetInvoiceStatus(_ context.Context, _ string) (*infra.InvoiceResult, error) {
	if p.statusErr != nil {
		return nil, p.statusErr
	}
	return p.statusResult, nil
}

func (p *stubInvoiceProvider) CancelInvoice(_ context.Context, _, _ string) error {
	return p.cancelErr
}

func (p *stubInvoiceProvider) DownloadPDF(_ context.Context, _, _ string) (string, error) {
	return "stub.pdf", errors.New("not implemented in stub")
}

var _ infra.InvoiceProvider = (*stubInvoiceProvider)(nil)
