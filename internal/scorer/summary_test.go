package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/visibility-cli/internal/model"
)

func TestSummary(t *testing.T) {
	t.Parallel()

	res := Compute(scenario(), DefaultScoringConfig())
	got := Summary(res, "acme-plumbing.com")

	assert.Equal(t, "acme-plumbing.com was mentioned in 10 of 25 AI answers (40%) across 3 platforms."+
		" Strongest on openai (67%), weakest on gemini (14%)."+
		" 2 queries did not return an answer."+
		" The most-mentioned competitor was Roto-Rooter (25 mentions).", got)
	assert.Equal(t, got, Summary(res, "acme-plumbing.com"))
}

func TestSummary_AllFailed(t *testing.T) {
	t.Parallel()

	res := Compute([]model.PlatformResponse{failedRow(0, "openai")}, DefaultScoringConfig())
	assert.Equal(t, "None of the 1 AI queries about acme.com returned an answer, so visibility could not be measured.",
		Summary(res, "acme.com"))
}

func TestSummary_NoQueries(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "No AI questions were asked about acme.com.", Summary(Result{}, "acme.com"))
}
