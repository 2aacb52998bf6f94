package models

// NutritionFacts holds the measurements printed on a product label, per 100g
// unless ServingSize says otherwise.
type NutritionFacts struct {
	Calories           float64 `json:"calories" validate:"gte=0"`           // kcal
	TotalFat           float64 `json:"totalFat" validate:"gte=0"`           // grams
	SaturatedFat       float64 `json:"saturatedFat" validate:"gte=0"`       // grams
	TransFat           float64 `json:"transFat" validate:"gte=0"`           // grams
	Cholesterol        float64 `json:"cholesterol" validate:"gte=0"`        // mg
	Sodium             float64 `json:"sodium" validate:"gte=0"`             // mg
	TotalCarbohydrates float64 `json:"totalCarbohydrates" validate:"gte=0"` // grams
	DietaryFiber       float64 `json:"dietaryFiber" validate:"gte=0"`       // grams
	Sugars             float64 `json:"sugars" validate:"gte=0"`             // grams
	Protein            float64 `json:"protein" validate:"gte=0"`            // grams
	ServingSize        string  `json:"servingSize"`
}

// HealthCriteria are the thresholds the scoring engine compares against.
type HealthCriteria struct {
	MaxCalories     float64 `json:"maxCalories" yaml:"max_calories" validate:"gte=0"`
	MaxSodium       float64 `json:"maxSodium" yaml:"max_sodium" validate:"gte=0"`
	MaxSugars       float64 `json:"maxSugars" yaml:"max_sugars" validate:"gte=0"`
	MaxSaturatedFat float64 `json:"maxSaturatedFat" yaml:"max_saturated_fat" validate:"gte=0"`
	MinFiber        float64 `json:"minFiber" yaml:"min_fiber" validate:"gte=0"`
	MinProtein      float64 `json:"minProtein" yaml:"min_protein" validate:"gte=0"`
}

// CriteriaUpdate is a partial HealthCriteria. Nil fields are left unchanged.
type CriteriaUpdate struct {
	MaxCalories     *float64 `json:"maxCalories,omitempty" yaml:"max_calories" validate:"omitempty,gte=0"`
	MaxSodium       *float64 `json:"maxSodium,omitempty" yaml:"max_sodium" validate:"omitempty,gte=0"`
	MaxSugars       *float64 `json:"maxSugars,omitempty" yaml:"max_sugars" validate:"omitempty,gte=0"`
	MaxSaturatedFat *float64 `json:"maxSaturatedFat,omitempty" yaml:"max_saturated_fat" validate:"omitempty,gte=0"`
	MinFiber        *float64 `json:"minFiber,omitempty" yaml:"min_fiber" validate:"omitempty,gte=0"`
	MinProtein      *float64 `json:"minProtein,omitempty" yaml:"min_protein" validate:"omitempty,gte=0"`
}

// LabelReading is what the label model extracts from a photo of a package.
type LabelReading struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Brand          string         `json:"brand"`
	Ingredients    []string       `json:"ingredients"`
	NutritionFacts NutritionFacts `json:"nutritionFacts"`
}

// Apply returns c with every non-nil field of u written over it. c itself is
// not modified.
func (c HealthCriteria) Apply(u CriteriaUpdate) HealthCriteria {
	if u.MaxCalories != nil {
		c.MaxCalories = *u.MaxCalories
	}
	if u.MaxSodium != nil {
		c.MaxSodium = *u.MaxSodium
	}
	if u.MaxSugars != nil {
		c.MaxSugars = *u.MaxSugars
	}
	if u.MaxSaturatedFat != nil {
		c.MaxSaturatedFat = *u.MaxSaturatedFat
	}
	if u.MinFiber != nil {
		c.MinFiber = *u.MinFiber
	}
	if u.MinProtein != nil {
		c.MinProtein = *u.MinProtein
	}
	return c
}

// IsEmpty reports whether u changes nothing.
func (u CriteriaUpdate) IsEmpty() bool {
	return u.MaxCalories == nil && u.MaxSodium == nil && u.MaxSugars == nil &&
		u.MaxSaturatedFat == nil && u.MinFiber == nil && u.MinProtein == nil
}
