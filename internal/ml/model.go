package ml

import (
	"context"
	"fmt"

	"github.com/franckalain/healthscanner/internal/logger"
	"github.com/franckalain/healthscanner/internal/models"
)

// Model reads a photographed product label
type Model interface {
	// Load initializes the model with its configuration
	Load(ctx context.Context) error
	// ProcessImage extracts nutrition facts and ingredients from a label photo
	ProcessImage(ctx context.Context, imageData []byte) (*models.LabelReading, error)
}

// ModelFactory creates a new model instance based on configuration
type ModelFactory interface {
	CreateModel() (Model, error)
}

// NewModel creates a model of the given type, reading its settings from
// configPath (or config/<type>.json, or the environment).
func NewModel(modelType, configPath string, log *logger.Logger) (Model, error) {
	var factory ModelFactory

	switch modelType {
	case "google":
		config := GoogleConfig{
			BaseConfig: BaseConfig{
				ConfigPath: configPath,
			},
		}
		if err := config.Load(log); err != nil {
			return nil, fmt.Errorf("failed to load Google config: %w", err)
		}
		factory = NewGoogleModelFactory(config)
	default:
		return nil, fmt.Errorf("unsupported model type: %s", modelType)
	}
	return factory.CreateModel()
}
