package core

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type TriggerType string

const (
	TriggerReview      TriggerType = "review"
	TriggerEndorsement TriggerType = "endorsement"
	TriggerDecline     TriggerType = "decline"
)

// CalculationTrigger is a rule outcome that stops a quote from being
// approved automatically.
type CalculationTrigger struct {
	Type    TriggerType `json:"type"`
	Name    string      `json:"name"`
	Message string      `json:"message,omitempty"`
}

// CalculationResult is the priced outcome of one form data revision.
type CalculationResult struct {
	ID             string               `json:"id"`
	FormDataID     string               `json:"formDataId,omitempty"`
	MonthlyPremium decimal.Decimal      `json:"monthlyPremium"`
	AnnualPremium  decimal.Decimal      `json:"annualPremium"`
	RiskScore      int                  `json:"riskScore"`
	Flags          []string             `json:"flags,omitempty"`
	Triggers       []CalculationTrigger `json:"triggers,omitempty"`
	Data           json.RawMessage      `json:"data,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
}

func (r CalculationResult) HasTrigger(types ...TriggerType) bool {
	return slices.ContainsFunc(r.Triggers, func(t CalculationTrigger) bool {
		return slices.Contains(types, t.Type)
	})
}

// RatingInput is the subset of quote form data the rating engine reads.
type RatingInput struct {
	CoverageAmount int64 `json:"coverageAmount"`
	TermYears      int   `json:"termYears"`
	Age            int   `json:"age"`
	Smoker         bool  `json:"smoker"`
}

func (in RatingInput) complete() bool {
	return in.CoverageAmount > 0 && in.TermYears > 0 && in.Age > 0
}

type RatingService interface {
	Calculate(ctx context.Context, release ReleaseContext, fd FormData) (CalculationResult, error)
}

type ratingService struct {
	resolver CachingResolver
	clock    func() time.Time
}

func NewRatingService(resolver CachingResolver) RatingService {
	return &ratingService{resolver: resolver, clock: time.Now}
}

func (s *ratingService) Calculate(ctx context.Context, release ReleaseContext, fd FormData) (CalculationResult, error) {
	// 1) decode the rating inputs
	var in RatingInput
	if err := json.Unmarshal(fd.JSON, &in); err != nil {
		return CalculationResult{}, fmt.Errorf("%w: form data: %v", ErrValidation, err)
	}

	res := CalculationResult{
		FormDataID: fd.ID,
		CreatedAt:  s.clock(),
	}

	// 2) incomplete forms are saved but must be reviewed before approval
	if !in.complete() {
		res.Triggers = append(res.Triggers, CalculationTrigger{
			Type: TriggerReview, Name: "rating_input_incomplete",
			Message: "coverage amount, term and age are required for rating",
		})
		return res, nil
	}

	// 3) validate against product bounds
	p, err := s.resolver.GetProductOrThrow(ctx, release.TenantID, release.ProductID)
	if err != nil {
		return CalculationResult{}, err
	}
	if err := p.Rating.check(in); err != nil {
		return CalculationResult{}, err
	}

	// 4) price
	monthly := decimal.NewFromInt(in.CoverageAmount).
		Div(decimal.NewFromInt(1000)).
		Mul(p.Rating.BaseRate).
		Mul(factorAge(in.Age)).
		Mul(factorSmoker(in.Smoker)).
		Round(2)
	res.MonthlyPremium = monthly
	res.AnnualPremium = monthly.Mul(decimal.NewFromInt(12))

	// 5) score risk into triggers
	risk := ScoreRisk(in)
	res.RiskScore = risk.Score
	res.Flags = risk.Flags
	res.Triggers = risk.Triggers
	return res, nil
}

func (r RatingParameters) check(in RatingInput) error {
	if r.MaxCoverage > 0 && (in.CoverageAmount < r.MinCoverage || in.CoverageAmount > r.MaxCoverage) {
		return newError(ErrValidation, "rating.coverage.out.of.range", "Coverage out of range",
			fmt.Sprintf("coverage must be between %d and %d", r.MinCoverage, r.MaxCoverage))
	}
	if r.TermYears > 0 && in.TermYears != r.TermYears {
		return newError(ErrValidation, "rating.term.invalid", "Invalid term",
			fmt.Sprintf("term must be %d years", r.TermYears))
	}
	return nil
}

func factorAge(age int) decimal.Decimal {
	switch {
	case age <= 30:
		return decimal.RequireFromString("0.90")
	case age <= 40:
		return decimal.NewFromInt(1)
	case age <= 50:
		return decimal.RequireFromString("1.20")
	case age <= 60:
		return decimal.RequireFromString("1.60")
	default:
		return decimal.NewFromInt(2)
	}
}

func factorSmoker(smoker bool) decimal.Decimal {
	if smoker {
		return decimal.RequireFromString("1.50")
	}
	return decimal.NewFromInt(1)
}

// RiskScore is the output of the rules engine.
type RiskScore struct {
	Score    int                  `json:"score"` // 0-100, higher = riskier
	Flags    []string             `json:"flags"`
	Triggers []CalculationTrigger `json:"triggers"`
}

// ScoreRisk scores the rating inputs. A score above 20 needs a review,
// high coverage needs an endorsement, and applicants over 80 are declined.
func ScoreRisk(in RatingInput) RiskScore {
	if in.Age > 80 {
		return RiskScore{
			Score: 100,
			Flags: []string{"age_over_80"},
			Triggers: []CalculationTrigger{{Type: TriggerDecline, Name: "age_over_80",
				Message: "applicants older than 80 are not covered"}},
		}
	}

	score := 0
	var flags []string

	switch {
	case in.Age > 65:
		score += 50
		flags = append(flags, "senior_65_plus")
	case in.Age > 60:
		score += 35
		flags = append(flags, "senior")
	case in.Age > 50:
		score += 25
	case in.Age > 40:
		score += 10
	}

	if in.Smoker {
		score += 25
		flags = append(flags, "smoker")
	}

	switch {
	case in.CoverageAmount > 500000:
		score += 25
		flags = append(flags, "high_coverage")
	case in.CoverageAmount > 250000:
		score += 15
		flags = append(flags, "medium_high_coverage")
	case in.CoverageAmount > 100000:
		score += 10
	}

	var triggers []CalculationTrigger
	if slices.Contains(flags, "high_coverage") {
		triggers = append(triggers, CalculationTrigger{Type: TriggerEndorsement, Name: "high_coverage",
			Message: "coverage above 500000 needs an underwriter endorsement"})
	}
	if score > 20 {
		triggers = append(triggers, CalculationTrigger{Type: TriggerReview, Name: "risk_score",
			Message: fmt.Sprintf("risk score %d needs a review", score)})
	}
	return RiskScore{Score: score, Flags: flags, Triggers: triggers}
}
