package services

import (
	"math"

	"github.com/andesviajes/tours-backend/internal/models"
)

// Platform commission rates per tour category
var commissionRates = map[models.TourCategory]float64{
	models.TourCategoryPremium:   0.15,
	models.TourCategoryAdventure: 0.12,
	models.TourCategoryCultural:  0.08,
	models.TourCategoryNature:    0.10,
}

// defaultCommissionRate applies to unknown or unclassified categories
const defaultCommissionRate = 0.10

// Amounts holds the derived money fields of a booking
type Amounts struct {
	TotalAmount      float64
	CommissionRate   float64
	CommissionAmount float64
	OperatorAmount   float64
}

// PricingService derives booking amounts from the tour category commission
// table. It is the single authority on rates; payment and commission records
// reuse the amounts computed here.
type PricingService struct{}

// NewPricingService creates a new pricing service
func NewPricingService() *PricingService {
	return &PricingService{}
}

// RateFor returns the commission rate for a tour category
func (s *PricingService) RateFor(category models.TourCategory) float64 {
	if rate, ok := commissionRates[category]; ok {
		return rate
	}
	return defaultCommissionRate
}

// CalculateAmounts computes the total, commission, and operator share for a
// booking. All money values are rounded half-up to 2 decimals, and the
// operator amount is derived from the rounded commission so the split always
// sums back to the total.
func (s *PricingService) CalculateAmounts(pricePerPerson float64, participants int, category models.TourCategory) Amounts {
	rate := s.RateFor(category)

	total := roundMoney(pricePerPerson * float64(participants))
	commission := roundMoney(total * rate)

	return Amounts{
		TotalAmount:      total,
		CommissionRate:   rate,
		CommissionAmount: commission,
		OperatorAmount:   roundMoney(total - commission),
	}
}

// roundMoney rounds half-up to 2 decimal places
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
