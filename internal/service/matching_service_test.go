package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matcherFixture struct {
	svc         service.MatchingService
	periodRepo  *stubPeriodRepo
	patientRepo *stubPatientRepo
	txnRepo     *stubTxnRepo
	therapistID uuid.UUID
}

func newMatcherFixture() *matcherFixture {
	f := &matcherFixture{
		periodRepo:  newStubPeriodRepo(),
		patientRepo: newStubPatientRepo(),
		txnRepo:     newStubTxnRepo(),
		therapistID: uuid.New(),
	}
	f.svc = service.NewMatchingService(f.txnRepo, f.periodRepo, f.patientRepo, service.DefaultMatcherWeights(), 4)
	return f
}

func (f *matcherFixture) addTxn(amountCents int64, date time.Time, description, senderName, senderDoc string) *model.BankTransaction {
	txn := &model.BankTransaction{
		ID:             uuid.New(),
		TherapistID:    f.therapistID,
		ExternalID:     uuid.NewString(),
		AmountCents:    amountCents,
		Description:    description,
		Date:           date,
		SenderName:     senderName,
		SenderDocument: senderDoc,
		Type:           "pix",
	}
	f.txnRepo.txns[txn.ID] = txn
	return txn
}

func julyFilter() dto.MatchFilter {
	return dto.MatchFilter{Start: "2025-07-01", End: "2025-07-31", Limit: 50}
}

func TestSuggestMatches_ReferenceCPFAndAmount(t *testing.T) {
	f := newMatcherFixture()
	cpf := "123.456.789-09"
	maria := seedPatient(f.patientRepo, f.therapistID, "Maria Silva", 18000)
	maria.Document = &cpf
	_ = f.patientRepo.Update(context.Background(), maria)
	period := seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 6, 54000, model.PeriodProcessed)

	txn := f.addTxn(54000,
		time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		"PIX RECEBIDO "+period.Reference+" MARIA SILVA",
		"Maria Silva", "12345678909")

	resp, err := f.svc.SuggestMatches(context.Background(), f.therapistID, julyFilter())
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)

	match := resp.Data[0]
	assert.Equal(t, txn.ID.String(), match.TransactionID)
	assert.Equal(t, period.ID.String(), match.BillingPeriodID)
	assert.GreaterOrEqual(t, match.Confidence, 0.95)
	assert.Contains(t, match.Reasons, "lv_reference_match")
	assert.Contains(t, match.Reasons, "cpf_match")
	assert.Contains(t, match.Reasons, "exact_amount_match")
	assert.Equal(t, int64(54000), match.SuggestedAmountCents)
	assert.Equal(t, "2025-07-02", match.SuggestedDate)
	assert.Equal(t, model.MethodPix, match.SuggestedMethod)
}

func TestSuggestMatches_NameNormalization(t *testing.T) {
	f := newMatcherFixture()
	maria := seedPatient(f.patientRepo, f.therapistID, "José Gonçalves", 20000)
	seedPatient(f.patientRepo, f.therapistID, "Ana Costa", 15000)
	seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 6, 60000, model.PeriodProcessed)

	// Bank exports strip accents and shout in uppercase.
	f.addTxn(60000, time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC),
		"TED RECEBIDA", "JOSE GONCALVES", "")

	resp, err := f.svc.SuggestMatches(context.Background(), f.therapistID, julyFilter())
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Contains(t, resp.Data[0].Reasons, "name_match")
	assert.Contains(t, resp.Data[0].Reasons, "exact_amount_match")
	assert.Equal(t, "José Gonçalves", resp.Data[0].PatientName)
}

func TestSuggestMatches_ApproximateAmount(t *testing.T) {
	f := newMatcherFixture()
	maria := seedPatient(f.patientRepo, f.therapistID, "Maria Silva", 18000)
	seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 6, 54000, model.PeriodProcessed)

	// 53000 is within 5% of 54000 but not exact.
	f.addTxn(53000, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		"PIX RECEBIDO", "Maria Silva", "")

	resp, err := f.svc.SuggestMatches(context.Background(), f.therapistID, julyFilter())
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Contains(t, resp.Data[0].Reasons, "close_amount_match")
	assert.NotContains(t, resp.Data[0].Reasons, "exact_amount_match")
}

func TestSuggestMatches_LimitKeepsStrongestMatch(t *testing.T) {
	f := newMatcherFixture()
	cpf := "123.456.789-09"
	maria := seedPatient(f.patientRepo, f.therapistID, "Maria Silva", 18000)
	maria.Document = &cpf
	_ = f.patientRepo.Update(context.Background(), maria)
	ana := seedPatient(f.patientRepo, f.therapistID, "Ana Costa", 15000)

	seedPeriod(t, f.periodRepo, f.therapistID, ana.ID, 2025, 6, 45000, model.PeriodProcessed)
	mariaPeriod := seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 6, 54000, model.PeriodProcessed)

	// Earlier-dated deposit with only a close-amount signal.
	f.addTxn(44000, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		"DEP DINHEIRO", "", "")
	// Later deposit with reference, CPF and exact amount.
	f.addTxn(54000, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		"PIX RECEBIDO "+mariaPeriod.Reference, "Maria Silva", "12345678909")

	filter := julyFilter()
	filter.Limit = 1
	resp, err := f.svc.SuggestMatches(context.Background(), f.therapistID, filter)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, mariaPeriod.ID.String(), resp.Data[0].BillingPeriodID,
		"truncation must happen after ranking, not in date order")
	assert.Contains(t, resp.Data[0].Reasons, "lv_reference_match")
}

func TestSuggestMatches_GarbageSenderNoNameMatch(t *testing.T) {
	f := newMatcherFixture()
	maria := seedPatient(f.patientRepo, f.therapistID, "Maria Silva", 18000)
	seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 6, 54000, model.PeriodProcessed)

	// Intermediary in the sender field, amount far off: nothing links this
	// deposit to any patient. The fuzzy index must not volunteer a name.
	f.addTxn(99900, time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
		"TRANSFERENCIA", "PAGSEGURO INTERNET SA", "")

	resp, err := f.svc.SuggestMatches(context.Background(), f.therapistID, julyFilter())
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestSuggestMatches_OldPeriodsOutsideLookbackExcluded(t *testing.T) {
	f := newMatcherFixture()
	maria := seedPatient(f.patientRepo, f.therapistID, "Maria Silva", 18000)
	seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 3, 54000, model.PeriodProcessed)
	april := seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 4, 44000, model.PeriodProcessed)

	// Two-month window; lookback (4 months) counts back from the range end,
	// so April is still searchable but March has aged out.
	f.addTxn(54000, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		"PIX RECEBIDO", "", "")
	f.addTxn(44000, time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC),
		"PIX RECEBIDO", "", "")

	filter := dto.MatchFilter{Start: "2025-07-01", End: "2025-08-31", Limit: 50}
	resp, err := f.svc.SuggestMatches(context.Background(), f.therapistID, filter)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, april.ID.String(), resp.Data[0].BillingPeriodID)
}

func TestSuggestMatches_NoSignalsNoSuggestion(t *testing.T) {
	f := newMatcherFixture()
	maria := seedPatient(f.patientRepo, f.therapistID, "Maria Silva", 18000)
	seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 6, 54000, model.PeriodProcessed)

	// Unrelated deposit: amount far off, no reference, unknown sender document,
	// sender name unlike any patient.
	f.addTxn(99900, time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
		"DEP DINHEIRO", "", "")

	resp, err := f.svc.SuggestMatches(context.Background(), f.therapistID, julyFilter())
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestSuggestMatches_ClaimedTransactionsExcluded(t *testing.T) {
	f := newMatcherFixture()
	maria := seedPatient(f.patientRepo, f.therapistID, "Maria Silva", 18000)
	seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 6, 54000, model.PeriodProcessed)

	txn := f.addTxn(54000, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		"PIX RECEBIDO", "Maria Silva", "")
	f.txnRepo.claimed[txn.ID] = true

	resp, err := f.svc.SuggestMatches(context.Background(), f.therapistID, julyFilter())
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestSuggestMatches_DateProximityTieBreak(t *testing.T) {
	f := newMatcherFixture()
	maria := seedPatient(f.patientRepo, f.therapistID, "Maria Silva", 18000)
	// Same patient, same monthly total: only the date can separate them.
	seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 5, 54000, model.PeriodProcessed)
	june := seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 6, 54000, model.PeriodProcessed)

	f.addTxn(54000, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		"PIX RECEBIDO", "Maria Silva", "")

	resp, err := f.svc.SuggestMatches(context.Background(), f.therapistID, julyFilter())
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, june.ID.String(), resp.Data[0].BillingPeriodID,
		"early-July payment should suggest June, not May")
}

func TestSuggestMatches_SingleBestCandidatePerTransaction(t *testing.T) {
	f := newMatcherFixture()
	cpf := "111.444.777-35"
	maria := seedPatient(f.patientRepo, f.therapistID, "Maria Silva", 18000)
	maria.Document = &cpf
	_ = f.patientRepo.Update(context.Background(), maria)
	joao := seedPatient(f.patientRepo, f.therapistID, "João Pereira", 18000)

	periodMaria := seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 6, 54000, model.PeriodProcessed)
	seedPeriod(t, f.periodRepo, f.therapistID, joao.ID, 2025, 6, 54000, model.PeriodProcessed)

	// Amount matches both patients; CPF disambiguates.
	f.addTxn(54000, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		"PIX RECEBIDO", "", "11144477735")

	resp, err := f.svc.SuggestMatches(context.Background(), f.therapistID, julyFilter())
	require.NoError(t, err)
	require.Len(t, resp.Data, 1, "one transaction yields at most one suggestion")
	assert.Equal(t, periodMaria.ID.String(), resp.Data[0].BillingPeriodID)
	assert.Contains(t, resp.Data[0].Reasons, "cpf_match")
}

func TestSuggestMatches_PaidPeriodsIgnored(t *testing.T) {
	f := newMatcherFixture()
	maria := seedPatient(f.patientRepo, f.therapistID, "Maria Silva", 18000)
	seedPeriod(t, f.periodRepo, f.therapistID, maria.ID, 2025, 6, 54000, model.PeriodPaid)

	f.addTxn(54000, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		"PIX RECEBIDO", "Maria Silva", "")

	resp, err := f.svc.SuggestMatches(context.Background(), f.therapistID, julyFilter())
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}
