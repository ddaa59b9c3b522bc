package service

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/repository"

	"github.com/google/uuid"
	"github.com/schollz/closestmatch"
	"github.com/shopspring/decimal"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MatcherWeights tunes the contribution of each signal to the confidence
// score. Signals stack; the sum is clipped at 1.0.
type MatcherWeights struct {
	Reference   float64 // billing reference found in the description
	Document    float64 // payer CPF equals the patient's CPF
	ExactAmount float64 // transaction amount equals the period total
	NearAmount  float64 // amount within 5% of the period total
	Name        float64 // sender name fuzzy-matches the patient name
	Tolerance   decimal.Decimal
}

func DefaultMatcherWeights() MatcherWeights {
	return MatcherWeights{
		Reference:   0.50,
		Document:    0.30,
		ExactAmount: 0.30,
		NearAmount:  0.15,
		Name:        0.20,
		Tolerance:   decimal.NewFromFloat(0.05),
	}
}

type MatchingService interface {
	SuggestMatches(ctx context.Context, therapistID uuid.UUID, filter dto.MatchFilter) (*dto.MatchListResponse, error)
}

type matchingService struct {
	txnRepo        repository.BankTransactionRepository
	periodRepo     repository.BillingPeriodRepository
	patientRepo    repository.PatientRepository
	weights        MatcherWeights
	lookbackMonths int
}

func NewMatchingService(
	txnRepo repository.BankTransactionRepository,
	periodRepo repository.BillingPeriodRepository,
	patientRepo repository.PatientRepository,
	weights MatcherWeights,
	lookbackMonths int,
) MatchingService {
	if lookbackMonths <= 0 {
		lookbackMonths = 4
	}
	return &matchingService{
		txnRepo:        txnRepo,
		periodRepo:     periodRepo,
		patientRepo:    patientRepo,
		weights:        weights,
		lookbackMonths: lookbackMonths,
	}
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9 ]+`)
var multiSpace = regexp.MustCompile(`\s+`)
var digitsOnly = regexp.MustCompile(`[^0-9]`)

// normalizeText uppercases, strips accents and punctuation, and collapses
// whitespace, so "José da Silva" and "JOSE DA SILVA " compare equal.
func normalizeText(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToUpper(out)
	out = nonAlnum.ReplaceAllString(out, " ")
	out = multiSpace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

func normalizeDocument(s string) string {
	return digitsOnly.ReplaceAllString(s, "")
}

// ── SuggestMatches ────────────────────────────────────────────────────────────
// Pure read path. For each unclaimed bank transaction in the window, scores
// every open billing period whose month-end falls inside the lookback window
// and keeps the single best candidate. Nothing is written: the suggestions
// feed the confirmation screen, and RecordPayment re-validates everything.

func (s *matchingService) SuggestMatches(ctx context.Context, therapistID uuid.UUID, filter dto.MatchFilter) (*dto.MatchListResponse, error) {
	start, err := time.Parse("2006-01-02", filter.Start)
	if err != nil {
		return nil, apierror.ErrValidation.WithDetailf("start inválido")
	}
	end, err := time.Parse("2006-01-02", filter.End)
	if err != nil {
		return nil, apierror.ErrValidation.WithDetailf("end inválido")
	}
	if end.Before(start) {
		return nil, apierror.ErrValidation.WithDetailf("end anterior a start")
	}

	txns, err := s.txnRepo.ListUnclaimedInRange(ctx, therapistID, start, end)
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return &dto.MatchListResponse{Data: []dto.MatchResponse{}}, nil
	}

	// Periods paid before the window opened cannot claim these transactions,
	// but old unpaid months can: look back a few months from the range end.
	lookbackStart := end.AddDate(0, -s.lookbackMonths, 0)
	periods, err := s.periodRepo.ListUnpaidForMatching(ctx, therapistID, lookbackStart, end)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return &dto.MatchListResponse{Data: []dto.MatchResponse{}}, nil
	}

	patients, err := s.patientRepo.ListByTherapist(ctx, therapistID, true)
	if err != nil {
		return nil, err
	}
	patientByID := make(map[uuid.UUID]*model.Patient, len(patients))
	normNameByID := make(map[uuid.UUID]string, len(patients))
	var normNames []string
	for i := range patients {
		p := &patients[i]
		patientByID[p.ID] = p
		n := normalizeText(p.Name)
		normNameByID[p.ID] = n
		normNames = append(normNames, n)
	}
	// Bag-of-words index over normalized patient names; 3- and 4-grams
	// tolerate bank-statement truncations like "MARIA S SANTOS".
	cm := closestmatch.New(normNames, []int{3, 4})

	// Score every transaction before ranking; truncating earlier would let a
	// weak early-dated match evict a strong later one.
	var out []dto.MatchResponse
	for i := range txns {
		txn := &txns[i]
		if best := s.bestCandidate(txn, periods, patientByID, normNameByID, cm); best != nil {
			out = append(out, *best)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	if out == nil {
		out = []dto.MatchResponse{}
	}
	return &dto.MatchListResponse{Data: out, Total: len(out)}, nil
}

func (s *matchingService) bestCandidate(
	txn *model.BankTransaction,
	periods []model.BillingPeriod,
	patientByID map[uuid.UUID]*model.Patient,
	normNameByID map[uuid.UUID]string,
	cm *closestmatch.ClosestMatch,
) *dto.MatchResponse {
	normDesc := normalizeText(txn.Description)
	normSender := normalizeText(txn.SenderName)
	senderDoc := normalizeDocument(txn.SenderDocument)
	txnAmount := decimal.NewFromInt(txn.AmountCents)

	// Closest always returns the least-dissimilar bag, even for garbage
	// senders; require real trigram overlap before awarding the name signal.
	closestName := ""
	if normSender != "" {
		if c := cm.Closest(normSender); trigramOverlap(normSender, c) >= minNameOverlap {
			closestName = c
		}
	}

	var best *dto.MatchResponse
	bestScore := 0.0
	var bestDateDistance time.Duration

	for i := range periods {
		period := &periods[i]
		patient, ok := patientByID[period.PatientID]
		if !ok {
			continue
		}

		score := 0.0
		var reasons []string

		if normDesc != "" && strings.Contains(normDesc, normalizeText(period.Reference)) {
			score += s.weights.Reference
			reasons = append(reasons, "lv_reference_match")
		}

		if senderDoc != "" && patient.Document != nil && senderDoc == normalizeDocument(*patient.Document) {
			score += s.weights.Document
			reasons = append(reasons, "cpf_match")
		}

		periodAmount := decimal.NewFromInt(period.TotalAmountCents)
		if txn.AmountCents == period.TotalAmountCents {
			score += s.weights.ExactAmount
			reasons = append(reasons, "exact_amount_match")
		} else if !periodAmount.IsZero() {
			diff := txnAmount.Sub(periodAmount).Abs().Div(periodAmount)
			if diff.LessThanOrEqual(s.weights.Tolerance) {
				score += s.weights.NearAmount
				reasons = append(reasons, "close_amount_match")
			}
		}

		if closestName != "" && closestName == normNameByID[period.PatientID] {
			score += s.weights.Name
			reasons = append(reasons, "name_match")
		}

		if score <= 0 {
			continue
		}
		if score > 1.0 {
			score = 1.0
		}

		dateDistance := txn.Date.Sub(period.MonthEnd())
		if dateDistance < 0 {
			dateDistance = -dateDistance
		}
		// Tie-break on date proximity: a payment usually lands shortly after
		// the month it settles.
		if score > bestScore || (score == bestScore && best != nil && dateDistance < bestDateDistance) {
			bestScore = score
			bestDateDistance = dateDistance
			best = &dto.MatchResponse{
				TransactionID:        txn.ID.String(),
				BillingPeriodID:      period.ID.String(),
				PatientID:            patient.ID.String(),
				PatientName:          patient.Name,
				Confidence:           score,
				Reasons:              reasons,
				SuggestedAmountCents: txn.AmountCents,
				SuggestedDate:        txn.Date.Format("2006-01-02"),
				SuggestedMethod:      suggestedMethod(txn.Type),
				SuggestedReference:   txn.ExternalID,
			}
		}
	}
	return best
}

// minNameOverlap is the fraction of the shorter string's trigrams that must
// appear in the other string for two names to count as a fuzzy match.
const minNameOverlap = 0.5

func trigramOverlap(a, b string) float64 {
	if len(a) < 3 || len(b) < 3 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	grams := make(map[string]struct{}, len(b))
	for i := 0; i+3 <= len(b); i++ {
		grams[b[i:i+3]] = struct{}{}
	}
	shared := 0
	total := 0
	for i := 0; i+3 <= len(a); i++ {
		total++
		if _, ok := grams[a[i:i+3]]; ok {
			shared++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(shared) / float64(total)
}

func suggestedMethod(txnType string) string {
	switch txnType {
	case "pix":
		return model.MethodPix
	default:
		return model.MethodTransfer
	}
}
