// Package scorer turns the platform responses of a run into visibility
// scores, a competitor ranking and a summary. Everything here is pure.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/internal/config"
)

// DefaultScoringConfig returns a config.ScoringConfig with the report
// defaults: five public competitors and up to fifty retained internally.
func DefaultScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		PublicCompetitors:   5,
		InternalCompetitors: 50,
	}
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	if c.PublicCompetitors < 0 {
		errs = append(errs, "public_competitors must be >= 0")
	}
	if c.InternalCompetitors < 0 {
		errs = append(errs, "internal_competitors must be >= 0")
	}
	if c.InternalCompetitors > 0 && c.InternalCompetitors < c.PublicCompetitors {
		errs = append(errs, fmt.Sprintf("internal_competitors (%d) must be >= public_competitors (%d)",
			c.InternalCompetitors, c.PublicCompetitors))
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func withDefaults(c config.ScoringConfig) config.ScoringConfig {
	d := DefaultScoringConfig()
	if c.PublicCompetitors <= 0 {
		c.PublicCompetitors = d.PublicCompetitors
	}
	if c.InternalCompetitors <= 0 {
		c.InternalCompetitors = d.InternalCompetitors
	}
	if c.InternalCompetitors < c.PublicCompetitors {
		c.InternalCompetitors = c.PublicCompetitors
	}
	return c
}
