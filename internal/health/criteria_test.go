package health

import (
	"sync"
	"testing"

	"github.com/franckalain/healthscanner/internal/models"
)

func ptr(v float64) *float64 { return &v }

func TestCriteriaApply_PartialMerge(t *testing.T) {
	base := DefaultCriteria()
	got := base.Apply(models.CriteriaUpdate{MaxSodium: ptr(300), MinProtein: ptr(0)})

	want := base
	want.MaxSodium = 300
	want.MinProtein = 0
	if got != want {
		t.Errorf("Apply = %+v, want %+v", got, want)
	}
	if base.MaxSodium != 500 {
		t.Errorf("Apply modified its receiver: %+v", base)
	}
}

func TestCriteriaUpdate_IsEmpty(t *testing.T) {
	if !(models.CriteriaUpdate{}).IsEmpty() {
		t.Error("zero update should be empty")
	}
	if (models.CriteriaUpdate{MinFiber: ptr(1)}).IsEmpty() {
		t.Error("update with min_fiber should not be empty")
	}
}

func TestCriteriaStore_UpdateAffectsLaterCallsOnly(t *testing.T) {
	store := NewCriteriaStore(DefaultCriteria())
	facts := models.NutritionFacts{Calories: 450, DietaryFiber: 5, Protein: 20}

	before := Analyze(facts, nil, store.Get())
	updated := store.Update(models.CriteriaUpdate{MaxCalories: ptr(1000)})
	after := Analyze(facts, nil, store.Get())

	if updated.MaxCalories != 1000 || updated.MaxSodium != 500 {
		t.Errorf("Update returned %+v", updated)
	}
	if before.Score != 95 {
		t.Errorf("earlier analysis changed: score %d, want 95", before.Score)
	}
	if after.Score != 100 {
		t.Errorf("later analysis score %d, want 100", after.Score)
	}
}

func TestCriteriaStore_ConcurrentAccess(t *testing.T) {
	store := NewCriteriaStore(DefaultCriteria())
	facts := models.NutritionFacts{Calories: 450, DietaryFiber: 5, Protein: 20}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			store.Update(models.CriteriaUpdate{MaxCalories: ptr(float64(400 + i))})
		}(i)
		go func() {
			defer wg.Done()
			a := Analyze(facts, nil, store.Get())
			if a.Score < 95 || a.Score > 100 {
				t.Errorf("score out of range: %d", a.Score)
			}
		}()
	}
	wg.Wait()
}
