// Package lookup resolves scanned barcodes to products using the Open Food
// Facts API, and builds the placeholder record used when nothing is found.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/franckalain/healthscanner/internal/models"
)

const (
	// DefaultBaseURL is the Open Food Facts v0 product endpoint. The barcode
	// and ".json" are appended to it.
	DefaultBaseURL = "https://world.openfoodfacts.org/api/v0/product/"

	defaultTimeout = 10 * time.Second

	// Open Food Facts reports salt in g/100g; sodium is stored in mg.
	saltToSodiumMg = 400

	defaultServingSize = "100g"
)

// Source looks up a product by barcode. A nil product with a nil error means
// the barcode is unknown.
type Source interface {
	GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error)
}

// Client is a Source backed by the Open Food Facts HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewClient returns a client for baseURL. An empty baseURL uses
// DefaultBaseURL and a non-positive timeout uses 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

type apiResponse struct {
	Product *struct {
		ProductName     string     `json:"product_name"`
		Brands          string     `json:"brands"`
		IngredientsText string     `json:"ingredients_text"`
		Nutriments      nutriments `json:"nutriments"`
		ImageURL        string     `json:"image_url"`
	} `json:"product"`
}

type nutriments struct {
	Energy        float64 `json:"energy_100g"`
	Fat           float64 `json:"fat_100g"`
	SaturatedFat  float64 `json:"saturated-fat_100g"`
	Carbohydrates float64 `json:"carbohydrates_100g"`
	Sugars        float64 `json:"sugars_100g"`
	Fiber         float64 `json:"fiber_100g"`
	Proteins      float64 `json:"proteins_100g"`
	Salt          float64 `json:"salt_100g"`
}

// GetProductByBarcode fetches and converts the product for barcode. The
// returned product carries a default analysis; scoring is up to the caller.
func (c *Client) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	url := c.baseURL + barcode + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("lookup: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup: unexpected status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("lookup: decode response: %w", err)
	}
	if body.Product == nil || body.Product.ProductName == "" {
		return nil, nil
	}

	ap := body.Product
	n := ap.Nutriments
	return &models.Product{
		ID:          barcode,
		Barcode:     barcode,
		Name:        orDefault(ap.ProductName, "Unknown Product"),
		Brand:       orDefault(ap.Brands, "Unknown Brand"),
		ImageURL:    ap.ImageURL,
		Ingredients: ParseIngredients(ap.IngredientsText),
		NutritionFacts: models.NutritionFacts{
			Calories:           n.Energy,
			TotalFat:           n.Fat,
			SaturatedFat:       n.SaturatedFat,
			Sodium:             n.Salt * saltToSodiumMg,
			TotalCarbohydrates: n.Carbohydrates,
			DietaryFiber:       n.Fiber,
			Sugars:             n.Sugars,
			Protein:            n.Proteins,
			ServingSize:        defaultServingSize,
		},
		HealthAnalysis: models.DefaultAnalysis(),
		ScannedAt:      c.now(),
	}, nil
}

// ParseIngredients splits a comma-separated ingredient text into trimmed,
// non-empty entries.
func ParseIngredients(text string) []string {
	ingredients := []string{}
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ingredients = append(ingredients, part)
		}
	}
	return ingredients
}

// FallbackProduct is the record used when a barcode cannot be resolved: zeroed
// nutrition and a placeholder ingredient.
func FallbackProduct(barcode string, now time.Time) *models.Product {
	return &models.Product{
		ID:          barcode,
		Barcode:     barcode,
		Name:        "Product Not Found",
		Brand:       "Unknown",
		Ingredients: []string{"Ingredients not available"},
		NutritionFacts: models.NutritionFacts{
			ServingSize: defaultServingSize,
		},
		HealthAnalysis: models.HealthAnalysis{
			Score:           0,
			Category:        models.CategoryPoor,
			PositiveFactors: []string{},
			NegativeFactors: []string{"Product information not available"},
			Recommendations: []string{"Try scanning a different product or check the barcode"},
			Warnings:        []string{"Limited product data available"},
		},
		ScannedAt: now,
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
