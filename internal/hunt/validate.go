package hunt

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"dealer_hunt/internal/filter"
	"dealer_hunt/internal/gate"
	"dealer_hunt/internal/model"
)

var validate = validator.New()

// Validate checks that h can drive a run. Failures wrap ErrInvalidHunt.
func Validate(h *model.Hunt) error {
	if err := validate.Struct(h); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHunt, err)
	}
	if h.Series != "" && gate.SeriesVocab.Resolve(h.Series) == "" {
		return fmt.Errorf("%w: unknown series %q", ErrInvalidHunt, h.Series)
	}
	if h.EngineFamily != "" && gate.EngineVocab.Resolve(h.EngineFamily) == "" {
		return fmt.Errorf("%w: unknown engine family %q", ErrInvalidHunt, h.EngineFamily)
	}
	for _, r := range h.Exclude {
		if r.Kind != model.RuleExcludeRe && r.Kind != model.RuleIncludeRe {
			continue
		}
		if err := filter.ValidateRegex(r.Value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidHunt, err)
		}
	}
	return nil
}
