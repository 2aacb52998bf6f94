package health

import (
	"sync"

	"github.com/franckalain/healthscanner/internal/models"
)

// DefaultCriteria returns thresholds based on general dietary guidelines.
func DefaultCriteria() models.HealthCriteria {
	return models.HealthCriteria{
		MaxCalories:     400,
		MaxSodium:       500,
		MaxSugars:       25,
		MaxSaturatedFat: 5,
		MinFiber:        3,
		MinProtein:      10,
	}
}

// CriteriaStore holds the criteria shared by every scan a server performs.
// Get hands out a copy, so an analysis in flight never sees a later update.
type CriteriaStore struct {
	mu       sync.RWMutex
	criteria models.HealthCriteria
}

// NewCriteriaStore creates a store seeded with initial.
func NewCriteriaStore(initial models.HealthCriteria) *CriteriaStore {
	return &CriteriaStore{criteria: initial}
}

// Get returns the current criteria.
func (s *CriteriaStore) Get() models.HealthCriteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// Update merges u into the current criteria and returns the result. Only
// analyses run after Update returns use the new values.
func (s *CriteriaStore) Update(u models.CriteriaUpdate) models.HealthCriteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = s.criteria.Apply(u)
	return s.criteria
}
