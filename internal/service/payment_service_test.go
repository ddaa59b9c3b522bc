package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPeriod(t *testing.T, repo *stubPeriodRepo, therapistID, patientID uuid.UUID, year, month int, amountCents int64, status string) *model.BillingPeriod {
	t.Helper()
	p := &model.BillingPeriod{
		TherapistID: therapistID, PatientID: patientID,
		Year: year, Month: month, SessionCount: 3, TotalAmountCents: amountCents,
		Reference: model.PeriodReference(therapistID, patientID, year, month),
		Status:    status, ProcessedAt: time.Now(), ProcessedBy: therapistID,
	}
	require.NoError(t, repo.Create(context.Background(), nil, p))
	return p
}

func recordReq(periodID uuid.UUID, amountCents int64) dto.RecordPaymentRequest {
	return dto.RecordPaymentRequest{
		BillingPeriodID: periodID.String(),
		AmountCents:     amountCents,
		Method:          model.MethodPix,
		PaymentDate:     "2025-07-02",
	}
}

func TestRecordPayment_MarksPeriodPaid(t *testing.T) {
	periodRepo := newStubPeriodRepo()
	paymentRepo := newStubPaymentRepo()
	therapistID := uuid.New()
	patientID := uuid.New()
	period := seedPeriod(t, periodRepo, therapistID, patientID, 2025, 6, 54000, model.PeriodProcessed)

	svc := service.NewPaymentService(paymentRepo, periodRepo, nil)
	resp, err := svc.RecordPayment(context.Background(), therapistID, recordReq(period.ID, 54000))
	require.NoError(t, err)

	assert.Equal(t, int64(54000), resp.AmountCents)
	stored, _ := periodRepo.FindByID(context.Background(), period.ID)
	assert.Equal(t, model.PeriodPaid, stored.Status)
}

func TestRecordPayment_ChronologyEnforced(t *testing.T) {
	periodRepo := newStubPeriodRepo()
	paymentRepo := newStubPaymentRepo()
	therapistID := uuid.New()
	patientID := uuid.New()
	may := seedPeriod(t, periodRepo, therapistID, patientID, 2025, 5, 36000, model.PeriodProcessed)
	june := seedPeriod(t, periodRepo, therapistID, patientID, 2025, 6, 54000, model.PeriodProcessed)

	svc := service.NewPaymentService(paymentRepo, periodRepo, nil)

	// June first: rejected while May is open
	_, err := svc.RecordPayment(context.Background(), therapistID, recordReq(june.ID, 54000))
	assert.ErrorIs(t, err, apierror.ErrChronologyViolation)

	// May, then June: accepted
	_, err = svc.RecordPayment(context.Background(), therapistID, recordReq(may.ID, 36000))
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), therapistID, recordReq(june.ID, 54000))
	require.NoError(t, err)
}

func TestRecordPayment_VoidedMonthDoesNotBlockChronology(t *testing.T) {
	periodRepo := newStubPeriodRepo()
	paymentRepo := newStubPaymentRepo()
	therapistID := uuid.New()
	patientID := uuid.New()
	may := seedPeriod(t, periodRepo, therapistID, patientID, 2025, 5, 36000, model.PeriodProcessed)
	june := seedPeriod(t, periodRepo, therapistID, patientID, 2025, 6, 54000, model.PeriodProcessed)
	require.NoError(t, periodRepo.UpdateVoidTx(nil, may.ID, "mês sem atendimento"))

	svc := service.NewPaymentService(paymentRepo, periodRepo, nil)
	_, err := svc.RecordPayment(context.Background(), therapistID, recordReq(june.ID, 54000))
	assert.NoError(t, err)
}

func TestRecordPayment_RejectsPaidAndVoidPeriods(t *testing.T) {
	periodRepo := newStubPeriodRepo()
	paymentRepo := newStubPaymentRepo()
	therapistID := uuid.New()
	patientID := uuid.New()
	paid := seedPeriod(t, periodRepo, therapistID, patientID, 2025, 5, 36000, model.PeriodPaid)
	void := seedPeriod(t, periodRepo, therapistID, patientID, 2025, 6, 54000, model.PeriodProcessed)
	require.NoError(t, periodRepo.UpdateVoidTx(nil, void.ID, "erro"))

	svc := service.NewPaymentService(paymentRepo, periodRepo, nil)
	_, err := svc.RecordPayment(context.Background(), therapistID, recordReq(paid.ID, 36000))
	assert.ErrorIs(t, err, apierror.ErrValidation)
	_, err = svc.RecordPayment(context.Background(), therapistID, recordReq(void.ID, 54000))
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestRecordPayment_BankTransactionClaimedOnce(t *testing.T) {
	periodRepo := newStubPeriodRepo()
	paymentRepo := newStubPaymentRepo()
	therapistID := uuid.New()
	patientA := uuid.New()
	patientB := uuid.New()
	periodA := seedPeriod(t, periodRepo, therapistID, patientA, 2025, 6, 54000, model.PeriodProcessed)
	periodB := seedPeriod(t, periodRepo, therapistID, patientB, 2025, 6, 54000, model.PeriodProcessed)
	txnID := uuid.New().String()

	svc := service.NewPaymentService(paymentRepo, periodRepo, nil)

	reqA := recordReq(periodA.ID, 54000)
	reqA.BankTransactionID = &txnID
	_, err := svc.RecordPayment(context.Background(), therapistID, reqA)
	require.NoError(t, err)

	// The same transaction cannot settle a second period, even for another patient.
	reqB := recordReq(periodB.ID, 54000)
	reqB.BankTransactionID = &txnID
	_, err = svc.RecordPayment(context.Background(), therapistID, reqB)
	assert.ErrorIs(t, err, apierror.ErrTransactionClaimed)

	stored, _ := periodRepo.FindByID(context.Background(), periodB.ID)
	assert.Equal(t, model.PeriodProcessed, stored.Status, "losing request must leave the period unpaid")
}

func TestRecordPayment_AmountMismatchAccepted(t *testing.T) {
	periodRepo := newStubPeriodRepo()
	paymentRepo := newStubPaymentRepo()
	therapistID := uuid.New()
	patientID := uuid.New()
	period := seedPeriod(t, periodRepo, therapistID, patientID, 2025, 6, 54000, model.PeriodProcessed)

	svc := service.NewPaymentService(paymentRepo, periodRepo, nil)
	resp, err := svc.RecordPayment(context.Background(), therapistID, recordReq(period.ID, 50000))
	require.NoError(t, err)
	assert.Equal(t, int64(50000), resp.AmountCents, "recorded amount is what was confirmed, not the period total")
}

func TestCancelPayment_RevertsPeriodAndFreesTransaction(t *testing.T) {
	periodRepo := newStubPeriodRepo()
	paymentRepo := newStubPaymentRepo()
	therapistID := uuid.New()
	patientID := uuid.New()
	period := seedPeriod(t, periodRepo, therapistID, patientID, 2025, 6, 54000, model.PeriodProcessed)
	txnID := uuid.New().String()

	svc := service.NewPaymentService(paymentRepo, periodRepo, nil)
	req := recordReq(period.ID, 54000)
	req.BankTransactionID = &txnID
	resp, err := svc.RecordPayment(context.Background(), therapistID, req)
	require.NoError(t, err)

	paymentID, _ := uuid.Parse(resp.ID)
	require.NoError(t, svc.CancelPayment(context.Background(), therapistID, paymentID))

	stored, _ := periodRepo.FindByID(context.Background(), period.ID)
	assert.Equal(t, model.PeriodProcessed, stored.Status)

	// Transaction is claimable again
	req2 := recordReq(period.ID, 54000)
	req2.BankTransactionID = &txnID
	_, err = svc.RecordPayment(context.Background(), therapistID, req2)
	assert.NoError(t, err)
}

func TestGetOutstanding_ReportsOldestUnpaid(t *testing.T) {
	periodRepo := newStubPeriodRepo()
	patientRepo := newStubPatientRepo()
	therapistID := uuid.New()
	patient := seedPatient(patientRepo, therapistID, "Maria Silva", 18000)
	seedPeriod(t, periodRepo, therapistID, patient.ID, 2025, 4, 36000, model.PeriodPaid)
	may := seedPeriod(t, periodRepo, therapistID, patient.ID, 2025, 5, 36000, model.PeriodProcessed)
	seedPeriod(t, periodRepo, therapistID, patient.ID, 2025, 6, 54000, model.PeriodProcessed)

	svc := service.NewOutstandingService(periodRepo, patientRepo)
	resp, err := svc.GetOutstanding(context.Background(), therapistID, patient.ID)
	require.NoError(t, err)

	assert.True(t, resp.HasOutstanding)
	assert.Equal(t, 5, resp.OldestUnpaidMonth)
	assert.Equal(t, int64(36000), resp.AmountCents)
	assert.Equal(t, may.ID.String(), resp.BillingPeriodID)
}

func TestGetOutstanding_NothingOpen(t *testing.T) {
	periodRepo := newStubPeriodRepo()
	patientRepo := newStubPatientRepo()
	therapistID := uuid.New()
	patient := seedPatient(patientRepo, therapistID, "Maria Silva", 18000)
	seedPeriod(t, periodRepo, therapistID, patient.ID, 2025, 6, 54000, model.PeriodPaid)

	svc := service.NewOutstandingService(periodRepo, patientRepo)
	resp, err := svc.GetOutstanding(context.Background(), therapistID, patient.ID)
	require.NoError(t, err)
	assert.False(t, resp.HasOutstanding)
	assert.Zero(t, resp.AmountCents)
}
