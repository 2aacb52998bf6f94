package models

import (
	"time"
)

// Category buckets a health score for display.
type Category string

const (
	CategoryExcellent Category = "Excellent"
	CategoryGood      Category = "Good"
	CategoryFair      Category = "Fair"
	CategoryPoor      Category = "Poor"
)

// HealthAnalysis is the scoring engine's output. It is a value: once attached
// to a product it is never updated in place.
type HealthAnalysis struct {
	Score           int      `json:"score"`
	Category        Category `json:"category"`
	PositiveFactors []string `json:"positiveFactors"`
	NegativeFactors []string `json:"negativeFactors"`
	Recommendations []string `json:"recommendations"`
	Warnings        []string `json:"warnings"`
}

// Product is one scanned or entered food product
type Product struct {
	ID             string         `json:"id"`
	Barcode        string         `json:"barcode"`
	Name           string         `json:"name"`
	Brand          string         `json:"brand"`
	ImageURL       string         `json:"imageUrl,omitempty"`
	Ingredients    []string       `json:"ingredients"`
	NutritionFacts NutritionFacts `json:"nutritionFacts"`
	HealthScore    int            `json:"healthScore"`
	HealthAnalysis HealthAnalysis `json:"healthAnalysis"`
	ScannedAt      time.Time      `json:"scannedAt"`
}

// ScanHistory records that a product was scanned at a given time.
type ScanHistory struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Product   *Product  `json:"product,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultAnalysis is the placeholder attached to a product before it is scored.
func DefaultAnalysis() HealthAnalysis {
	return HealthAnalysis{
		Score:           0,
		Category:        CategoryFair,
		PositiveFactors: []string{},
		NegativeFactors: []string{},
		Recommendations: []string{},
		Warnings:        []string{},
	}
}
