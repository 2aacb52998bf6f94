package health

import (
	"math"

	"github.com/franckalain/healthscanner/internal/models"
)

// Comparison summarizes the health scores of a selection of products.
type Comparison struct {
	Count        int             `json:"count"`
	AverageScore int             `json:"averageScore"`
	Best         *models.Product `json:"best,omitempty"`
	Worst        *models.Product `json:"worst,omitempty"`
}

// Compare returns the rounded average score and the best and worst products.
// Ties go to the product that appears first.
func Compare(products []models.Product) Comparison {
	if len(products) == 0 {
		return Comparison{}
	}

	var total int
	best, worst := 0, 0
	for i, p := range products {
		total += p.HealthScore
		if p.HealthScore > products[best].HealthScore {
			best = i
		}
		if p.HealthScore < products[worst].HealthScore {
			worst = i
		}
	}

	return Comparison{
		Count:        len(products),
		AverageScore: AverageScore(total, len(products)),
		Best:         &products[best],
		Worst:        &products[worst],
	}
}

// AverageScore rounds total/n half up, returning 0 when n is 0.
func AverageScore(total, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Floor(float64(total)/float64(n) + 0.5))
}
