// Package steps defines the stages of an analysis run and their dependencies.
package steps

import (
	"fmt"
	"sort"
)

// Step names
const (
	StepSearch     = "search"
	StepEvaluate   = "evaluate"
	StepFilter     = "filter"
	StepFetch      = "fetch"
	StepExtract    = "extract"
	StepSynthesize = "synthesize"
	StepSave       = "save"
)

// Step categories
const (
	CategoryAcquisition = "acquisition"
	CategoryEvaluation  = "evaluation"
	CategoryAnalysis    = "analysis"
	CategoryOutput      = "output"
)

// StepDefinition defines a pipeline stage and its dependencies
type StepDefinition struct {
	Name         string
	Category     string
	Order        int
	Dependencies []string // Required steps that must complete first
	Optional     []string // Steps that may run first but are not required
}

// StepRegistry maps step names to their definitions
var StepRegistry = map[string]StepDefinition{
	StepSearch: {
		Name:         StepSearch,
		Category:     CategoryAcquisition,
		Order:        1,
		Dependencies: []string{},
	},
	StepEvaluate: {
		Name:         StepEvaluate,
		Category:     CategoryEvaluation,
		Order:        2,
		Dependencies: []string{StepSearch},
	},
	StepFilter: {
		Name:         StepFilter,
		Category:     CategoryEvaluation,
		Order:        3,
		Dependencies: []string{StepEvaluate},
	},
	StepFetch: {
		Name:         StepFetch,
		Category:     CategoryAcquisition,
		Order:        4,
		Dependencies: []string{StepSearch},
		Optional:     []string{StepFilter},
	},
	StepExtract: {
		Name:         StepExtract,
		Category:     CategoryAnalysis,
		Order:        5,
		Dependencies: []string{StepFetch},
	},
	StepSynthesize: {
		Name:         StepSynthesize,
		Category:     CategoryAnalysis,
		Order:        6,
		Dependencies: []string{StepExtract},
	},
	StepSave: {
		Name:         StepSave,
		Category:     CategoryOutput,
		Order:        7,
		Dependencies: []string{StepSynthesize},
	},
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s: missing dependencies: %v", e.Step, e.MissingDependencies)
}

// Category returns the category of a step, or "" for an unknown step.
func Category(stepName string) string {
	return StepRegistry[stepName].Category
}

// Total is the number of registered steps.
func Total() int {
	return len(StepRegistry)
}

// Ordered returns the step names in execution order.
func Ordered() []string {
	names := make([]string, 0, len(StepRegistry))
	for name := range StepRegistry {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return StepRegistry[names[i]].Order < StepRegistry[names[j]].Order
	})
	return names
}

// ValidateDependencies checks that every required dependency of stepName is in completed.
func ValidateDependencies(completed map[string]bool, stepName string) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stepName,
			MissingDependencies: missing,
		}
	}
	return nil
}

// Tracker records the steps completed during one run.
type Tracker struct {
	completed map[string]bool
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{completed: make(map[string]bool)}
}

// Begin validates that stepName may start.
func (t *Tracker) Begin(stepName string) error {
	return ValidateDependencies(t.completed, stepName)
}

// Complete marks stepName as done.
func (t *Tracker) Complete(stepName string) {
	t.completed[stepName] = true
}

// Done reports whether stepName has completed.
func (t *Tracker) Done(stepName string) bool {
	return t.completed[stepName]
}

// GetAvailableSteps returns steps that have not completed and whose dependencies are met
func (t *Tracker) GetAvailableSteps() []string {
	var available []string
	for _, name := range Ordered() {
		if t.completed[name] {
			continue
		}
		if ValidateDependencies(t.completed, name) == nil {
			available = append(available, name)
		}
	}
	return available
}

// GetBlockedSteps returns steps whose dependencies are not met
func (t *Tracker) GetBlockedSteps() []string {
	var blocked []string
	for _, name := range Ordered() {
		if t.completed[name] {
			continue
		}
		if ValidateDependencies(t.completed, name) != nil {
			blocked = append(blocked, name)
		}
	}
	return blocked
}
