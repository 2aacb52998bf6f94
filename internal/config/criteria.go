package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/franckalain/healthscanner/internal/health"
	"github.com/franckalain/healthscanner/internal/models"
)

// LoadCriteriaUpdate reads a YAML file of threshold overrides. Keys that are
// absent stay nil:
//
//	max_calories: 350
//	min_fiber: 4
func LoadCriteriaUpdate(path string) (models.CriteriaUpdate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.CriteriaUpdate{}, fmt.Errorf("config: read criteria: %w", err)
	}

	var update models.CriteriaUpdate
	if err := yaml.Unmarshal(data, &update); err != nil {
		return models.CriteriaUpdate{}, fmt.Errorf("config: parse criteria yaml: %w", err)
	}
	if err := health.ValidateUpdate(update); err != nil {
		return models.CriteriaUpdate{}, fmt.Errorf("config: criteria: %w", err)
	}
	return update, nil
}

// LoadCriteria applies the overrides in path over base. On error base is
// returned unchanged.
func LoadCriteria(path string, base models.HealthCriteria) (models.HealthCriteria, error) {
	update, err := LoadCriteriaUpdate(path)
	if err != nil {
		return base, err
	}
	return base.Apply(update), nil
}
