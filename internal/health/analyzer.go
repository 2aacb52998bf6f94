// Package health turns a product's nutrition facts and ingredient list into a
// 0-100 health score with categorized factors, warnings and recommendations.
//
// Analyze is a pure function: the thresholds it scores against are passed in
// on every call, so concurrent callers only need to agree on which criteria
// value to hand it (see CriteriaStore).
package health

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/franckalain/healthscanner/internal/models"
)

// Deduction caps and divisors for nutrients that have an upper bound. A value
// over the maximum costs min(cap, (value-max)/divisor) points.
const (
	calorieCap          = 20.0
	calorieDivisor      = 10.0
	sodiumCap           = 15.0
	sodiumDivisor       = 50.0
	sugarCap            = 20.0
	sugarDivisor        = 5.0
	saturatedFatCap     = 15.0
	saturatedFatDivisor = 2.0
)

// Flat penalties and bonuses.
const (
	lowFiberPenalty            = 10.0
	lowProteinPenalty          = 5.0
	unhealthyIngredientPenalty = 10.0
	healthyIngredientBonus     = 2.0
	maxHealthyBonus            = 10.0
)

// Score thresholds.
const (
	excellentThreshold = 80
	goodThreshold      = 60
	fairThreshold      = 40
	// Scores below this get the "look for alternatives" recommendations.
	alternativesThreshold = 70
)

// UnhealthyIngredients are lowercase substrings that mark artificial or
// heavily processed ingredients. Order is the order they are reported in.
var UnhealthyIngredients = []string{
	"high fructose corn syrup",
	"partially hydrogenated",
	"trans fat",
	"artificial sweeteners",
	"artificial colors",
	"artificial flavors",
	"monosodium glutamate",
	"msg",
	"sodium nitrite",
	"sodium nitrate",
	"bha",
	"bht",
	"potassium bromate",
	"propylene glycol",
	"carrageenan",
	"sulfites",
}

// HealthyIngredients are lowercase substrings that earn a small bonus.
var HealthyIngredients = []string{
	"whole grain",
	"organic",
	"natural",
	"no artificial",
	"fiber",
	"protein",
	"vitamin",
	"mineral",
	"antioxidant",
	"omega-3",
	"probiotic",
}

const (
	msgFiberRecommendation = "Consider products with more fiber for better digestion"
	msgAlternatives        = "Consider healthier alternatives"
	msgReadLabels          = "Read ingredient labels carefully"
	msgHealthyChoice       = "This is a healthy choice!"
	msgProcessedWarning    = "Contains artificial or processed ingredients"
)

// upperLimit describes one nutrient that is penalized above a maximum and
// praised below half of it.
type upperLimit struct {
	value   float64
	max     float64
	cap     float64
	divisor float64
	highMsg string // fmt pattern taking the formatted value
	lowMsg  string
	warning string // empty when exceeding the limit carries no warning
}

// Analyze scores a product against criteria. It never fails; inputs are
// expected to be validated already (see ValidateFacts).
func Analyze(facts models.NutritionFacts, ingredients []string, criteria models.HealthCriteria) models.HealthAnalysis {
	a := models.HealthAnalysis{
		PositiveFactors: []string{},
		NegativeFactors: []string{},
		Recommendations: []string{},
		Warnings:        []string{},
	}
	score := 100.0

	limits := []upperLimit{
		{
			value: facts.Calories, max: criteria.MaxCalories,
			cap: calorieCap, divisor: calorieDivisor,
			highMsg: "High calorie content (%s cal)",
			lowMsg:  "Low calorie content",
		},
		{
			value: facts.Sodium, max: criteria.MaxSodium,
			cap: sodiumCap, divisor: sodiumDivisor,
			highMsg: "High sodium content (%smg)",
			lowMsg:  "Low sodium content",
			warning: "High sodium can contribute to high blood pressure",
		},
		{
			value: facts.Sugars, max: criteria.MaxSugars,
			cap: sugarCap, divisor: sugarDivisor,
			highMsg: "High sugar content (%sg)",
			lowMsg:  "Low sugar content",
			warning: "High sugar content can lead to weight gain and diabetes",
		},
		{
			value: facts.SaturatedFat, max: criteria.MaxSaturatedFat,
			cap: saturatedFatCap, divisor: saturatedFatDivisor,
			highMsg: "High saturated fat (%sg)",
			lowMsg:  "Low saturated fat content",
			warning: "High saturated fat can increase cholesterol levels",
		},
	}

	for _, l := range limits {
		switch {
		case l.value > l.max:
			score -= math.Min(l.cap, (l.value-l.max)/l.divisor)
			a.NegativeFactors = append(a.NegativeFactors, fmt.Sprintf(l.highMsg, formatAmount(l.value)))
			if l.warning != "" {
				a.Warnings = append(a.Warnings, l.warning)
			}
		case l.value < l.max*0.5:
			a.PositiveFactors = append(a.PositiveFactors, l.lowMsg)
		}
		// Between half the maximum and the maximum nothing is reported.
	}

	if facts.DietaryFiber < criteria.MinFiber {
		score -= lowFiberPenalty
		a.NegativeFactors = append(a.NegativeFactors, fmt.Sprintf("Low fiber content (%sg)", formatAmount(facts.DietaryFiber)))
		a.Recommendations = append(a.Recommendations, msgFiberRecommendation)
	} else {
		a.PositiveFactors = append(a.PositiveFactors, "Good fiber content")
	}

	// Low protein is penalized but gets no recommendation of its own.
	if facts.Protein < criteria.MinProtein {
		score -= lowProteinPenalty
		a.NegativeFactors = append(a.NegativeFactors, fmt.Sprintf("Low protein content (%sg)", formatAmount(facts.Protein)))
	} else {
		a.PositiveFactors = append(a.PositiveFactors, "Good protein content")
	}

	lowered := make([]string, len(ingredients))
	for i, ing := range ingredients {
		lowered[i] = strings.ToLower(ing)
	}

	if unhealthy := matchKeywords(UnhealthyIngredients, lowered); len(unhealthy) > 0 {
		score -= unhealthyIngredientPenalty * float64(len(unhealthy))
		a.NegativeFactors = append(a.NegativeFactors, "Contains unhealthy ingredients: "+strings.Join(unhealthy, ", "))
		a.Warnings = append(a.Warnings, msgProcessedWarning)
	}

	if healthy := matchKeywords(HealthyIngredients, lowered); len(healthy) > 0 {
		score += math.Min(maxHealthyBonus, healthyIngredientBonus*float64(len(healthy)))
		a.PositiveFactors = append(a.PositiveFactors, "Contains healthy ingredients: "+strings.Join(healthy, ", "))
	}

	a.Score = roundScore(clamp(score, 0, 100))
	a.Category = Categorize(a.Score)

	if a.Score < alternativesThreshold {
		a.Recommendations = append(a.Recommendations, msgAlternatives, msgReadLabels)
	}
	if a.Score >= excellentThreshold {
		a.Recommendations = append(a.Recommendations, msgHealthyChoice)
	}

	return a
}

// Categorize maps a rounded score onto its display category.
func Categorize(score int) models.Category {
	switch {
	case score >= excellentThreshold:
		return models.CategoryExcellent
	case score >= goodThreshold:
		return models.CategoryGood
	case score >= fairThreshold:
		return models.CategoryFair
	default:
		return models.CategoryPoor
	}
}

// matchKeywords returns the keywords, in list order, that occur in at least
// one of the lowercased ingredient strings.
func matchKeywords(keywords, ingredients []string) []string {
	var found []string
	for _, kw := range keywords {
		for _, ing := range ingredients {
			if strings.Contains(ing, kw) {
				found = append(found, kw)
				break
			}
		}
	}
	return found
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// roundScore rounds half up. Scores are already clamped to be non-negative.
func roundScore(v float64) int {
	return int(math.Floor(v + 0.5))
}

// formatAmount prints a measurement with as few digits as needed: 500, 12.5.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
