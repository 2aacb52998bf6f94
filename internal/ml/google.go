package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/franckalain/healthscanner/internal/logger"
	"github.com/franckalain/healthscanner/internal/models"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const defaultGoogleModel = "gemini-1.5-flash"

// GoogleConfig holds configuration for the Google model
type GoogleConfig struct {
	BaseConfig
	ProjectID       string `json:"project_id"`
	Location        string `json:"location"`
	CredentialsFile string `json:"credentials_file"`
	ModelName       string `json:"model_name"`
}

// Load loads the Google configuration
func (c *GoogleConfig) Load(log *logger.Logger) error {
	if err := c.LoadConfig(log, "google", c); err != nil {
		return err
	}

	// Fall back to environment variables if not set
	if c.ProjectID == "" {
		c.ProjectID = os.Getenv("GOOGLE_PROJECT_ID")
	}
	if c.Location == "" {
		c.Location = os.Getenv("GOOGLE_LOCATION")
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	}
	if c.ModelName == "" {
		c.ModelName = defaultGoogleModel
	}

	if c.ProjectID == "" || c.Location == "" {
		return fmt.Errorf("project_id and location are required")
	}
	return nil
}

// GoogleModel implements the Model interface for Google's Vertex AI
type GoogleModel struct {
	config GoogleConfig
	client *genai.Client
	model  *genai.GenerativeModel
}

// GoogleModelFactory implements ModelFactory for Google models
type GoogleModelFactory struct {
	config GoogleConfig
}

// NewGoogleModelFactory creates a new Google model factory
func NewGoogleModelFactory(config GoogleConfig) *GoogleModelFactory {
	return &GoogleModelFactory{config: config}
}

// CreateModel creates a new Google model instance
func (f *GoogleModelFactory) CreateModel() (Model, error) {
	return &GoogleModel{
		config: f.config,
	}, nil
}

// Load initializes the Google model
func (m *GoogleModel) Load(ctx context.Context) error {
	opts := []option.ClientOption{}

	if m.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(m.config.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, m.config.ProjectID, m.config.Location, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	m.client = client
	m.model = client.GenerativeModel(m.config.ModelName)
	return nil
}

// Close releases the Vertex AI client.
func (m *GoogleModel) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

const labelPrompt = `Analyze this photo of a packaged food product. Read the nutrition facts label and the ingredient list.
Report nutrition values per 100g: energy in kcal, sodium and cholesterol in mg, everything else in grams.
If the label gives salt instead of sodium, convert it: sodium_mg = salt_g * 400.

Format the response as a JSON object with exactly one of "error" or "success" populated.
If the image is not a readable nutrition label, populate "error" explaining what went wrong.
{
	"error": {
		"error_reason": "string",
		"suggestion_for_better_results": "string"
	},
	"success": {
		"name": "string",
		"brand": "string",
		"ingredients": ["string"],
		"calories": number,
		"total_fat": number,
		"saturated_fat": number,
		"trans_fat": number,
		"cholesterol": number,
		"sodium": number,
		"total_carbohydrates": number,
		"dietary_fiber": number,
		"sugars": number,
		"protein": number,
		"serving_size": "string"
	}
}`

// ProcessImage reads a label photo using Google's Vertex AI
func (m *GoogleModel) ProcessImage(ctx context.Context, imageData []byte) (*models.LabelReading, error) {
	if m.model == nil {
		return nil, fmt.Errorf("model not loaded")
	}

	img := genai.ImageData("jpeg", imageData)

	resp, err := m.model.GenerateContent(ctx, genai.Text(labelPrompt), img)
	if err != nil {
		return nil, fmt.Errorf("failed to call ai: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no response generated")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("no content in response")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return parseLabelResponse(text.String())
}

// requiredLabelFields must be present in a successful reading. The rest
// default to zero.
var requiredLabelFields = []string{"calories", "sodium", "sugars", "protein"}

// parseLabelResponse decodes the model's JSON answer, tolerating a markdown
// code fence around it.
func parseLabelResponse(textContent string) (*models.LabelReading, error) {
	textContent = strings.TrimSpace(textContent)
	textContent = strings.TrimPrefix(textContent, "```json")
	textContent = strings.TrimPrefix(textContent, "```")
	textContent = strings.TrimSuffix(textContent, "```")
	textContent = strings.TrimSpace(textContent)

	var output struct {
		Error *struct {
			ErrorReason string `json:"error_reason"`
			Suggestion  string `json:"suggestion_for_better_results"`
		} `json:"error"`
		Success map[string]json.RawMessage `json:"success"`
	}
	if err := json.Unmarshal([]byte(textContent), &output); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w while parsing %s", err, textContent)
	}

	if output.Error != nil && output.Error.ErrorReason != "" {
		return nil, fmt.Errorf("error: %s; suggestion: %s", output.Error.ErrorReason, output.Error.Suggestion)
	}
	if output.Success == nil {
		return nil, fmt.Errorf("missing or invalid success object in response")
	}
	for _, field := range requiredLabelFields {
		if _, exists := output.Success[field]; !exists {
			return nil, fmt.Errorf("missing required field '%s' in response", field)
		}
	}

	// Re-marshal the success object to decode it into typed fields.
	raw, err := json.Marshal(output.Success)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	var success struct {
		Name               string   `json:"name"`
		Brand              string   `json:"brand"`
		Ingredients        []string `json:"ingredients"`
		Calories           float64  `json:"calories"`
		TotalFat           float64  `json:"total_fat"`
		SaturatedFat       float64  `json:"saturated_fat"`
		TransFat           float64  `json:"trans_fat"`
		Cholesterol        float64  `json:"cholesterol"`
		Sodium             float64  `json:"sodium"`
		TotalCarbohydrates float64  `json:"total_carbohydrates"`
		DietaryFiber       float64  `json:"dietary_fiber"`
		Sugars             float64  `json:"sugars"`
		Protein            float64  `json:"protein"`
		ServingSize        string   `json:"serving_size"`
	}
	if err := json.Unmarshal(raw, &success); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	ingredients := make([]string, 0, len(success.Ingredients))
	for _, ing := range success.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			ingredients = append(ingredients, ing)
		}
	}
	if success.ServingSize == "" {
		success.ServingSize = "100g"
	}

	return &models.LabelReading{
		ID:          uuid.New().String(),
		Name:        success.Name,
		Brand:       success.Brand,
		Ingredients: ingredients,
		NutritionFacts: models.NutritionFacts{
			Calories:           success.Calories,
			TotalFat:           success.TotalFat,
			SaturatedFat:       success.SaturatedFat,
			TransFat:           success.TransFat,
			Cholesterol:        success.Cholesterol,
			Sodium:             success.Sodium,
			TotalCarbohydrates: success.TotalCarbohydrates,
			DietaryFiber:       success.DietaryFiber,
			Sugars:             success.Sugars,
			Protein:            success.Protein,
			ServingSize:        success.ServingSize,
		},
	}, nil
}
