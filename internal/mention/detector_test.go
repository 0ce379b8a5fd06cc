package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/model"
)

func acmeDetector(known ...string) *Detector {
	return NewDetector(Target{
		Domain:       "acme-plumbing.com",
		BusinessName: "Acme Plumbing",
		Competitors:  known,
	})
}

func TestScan_NumberedListPosition(t *testing.T) {
	t.Parallel()

	answer := `Here are some well-reviewed plumbers in Denver:

1. **Roto-Rooter** - Nationwide chain with 24/7 service.
2. **Acme Plumbing** - Local family business (acme-plumbing.com).
3. **Mile High Plumbing**: Known for water heaters.

Roto-Rooter is often the fastest to respond.`

	res := acmeDetector().Scan(answer, nil)
	assert.True(t, res.Mentioned)
	require.NotNil(t, res.Position)
	assert.Equal(t, 2, *res.Position)
	assert.Equal(t, []model.CompetitorCount{
		{Name: "Roto-Rooter", Count: 2},
		{Name: "Mile High Plumbing", Count: 1},
	}, res.Competitors)
}

func TestScan_ProsePositionFromCompetitorOrder(t *testing.T) {
	t.Parallel()

	answer := "Many homeowners use Benjamin Franklin Plumbing or Mr. Rooter, and ACME PLUMBING also gets good reviews."
	res := acmeDetector("Benjamin Franklin Plumbing", "Mr. Rooter", "Ace Drains").Scan(answer, nil)

	assert.True(t, res.Mentioned)
	require.NotNil(t, res.Position)
	assert.Equal(t, 3, *res.Position)
	require.Len(t, res.Competitors, 2)
	assert.Equal(t, "Benjamin Franklin Plumbing", res.Competitors[0].Name)
	assert.Equal(t, "Mr. Rooter", res.Competitors[1].Name)
}

func TestScan_NotMentioned(t *testing.T) {
	t.Parallel()

	res := acmeDetector("Roto-Rooter").Scan("Try Roto-Rooter for emergencies.", nil)
	assert.False(t, res.Mentioned)
	assert.Nil(t, res.Position)
	assert.Equal(t, []model.CompetitorCount{{Name: "Roto-Rooter", Count: 1}}, res.Competitors)
}

func TestScan_SubstringOfLongerWordIsNotAMention(t *testing.T) {
	t.Parallel()

	res := acmeDetector().Scan("Acmeplumbingsupplies sells parts.", nil)
	assert.False(t, res.Mentioned)
}

func TestScan_CitationCountsAsMention(t *testing.T) {
	t.Parallel()

	res := acmeDetector().Scan("Several local plumbers offer same-day service.",
		[]string{"https://www.acme-plumbing.com/services"})
	assert.True(t, res.Mentioned)
	assert.Nil(t, res.Position)
}

func TestScan_TargetNeverCountedAsCompetitor(t *testing.T) {
	t.Parallel()

	answer := "1. **Acme Plumbing**: great.\n2. **Acme Plumbing LLC**: same company."
	res := acmeDetector("Acme Plumbing", "acme-plumbing").Scan(answer, nil)
	assert.Empty(t, res.Competitors)
	require.NotNil(t, res.Position)
	assert.Equal(t, 1, *res.Position)
}

func TestScan_CommonWordDomainLabel(t *testing.T) {
	t.Parallel()

	answer := `Here are some well-reviewed plumbing companies in Denver:

1. **Radiant Plumbing** - fast service.
2. **Reliant Plumbing** - fair prices.`

	res := NewDetector(Target{Domain: "plumbing.com"}).Scan(answer, nil)
	assert.False(t, res.Mentioned)
	assert.Nil(t, res.Position)
	assert.Equal(t, []model.CompetitorCount{
		{Name: "Radiant Plumbing", Count: 1},
		{Name: "Reliant Plumbing", Count: 1},
	}, res.Competitors)

	res = NewDetector(Target{Domain: "plumbing.com"}).Scan("Book online at plumbing.com.", nil)
	assert.True(t, res.Mentioned)
}

func TestScan_CompetitorContainingTargetWordIsKept(t *testing.T) {
	t.Parallel()

	answer := "1. **Acme Plumbing**: great.\n2. **Acme Plumbing Supply Co**: parts only."
	res := acmeDetector().Scan(answer, nil)
	assert.Equal(t, []model.CompetitorCount{{Name: "Acme Plumbing Supply Co", Count: 1}}, res.Competitors)
}

func TestScan_IgnoresGenericLeads(t *testing.T) {
	t.Parallel()

	answer := `- **Pricing**: varies by job.
- Ask for references: always a good idea.
- **Licensing**: check the state board.
- **Denver Drain Pros**: fast and friendly.`

	res := acmeDetector().Scan(answer, nil)
	assert.Equal(t, []model.CompetitorCount{{Name: "Denver Drain Pros", Count: 1}}, res.Competitors)
}

func TestScan_CaseFolding(t *testing.T) {
	t.Parallel()

	d := NewDetector(Target{Domain: "strasse-bau.de", BusinessName: "Straße Bau"})
	res := d.Scan("Empfehlung: STRASSE BAU in Berlin.", nil)
	assert.True(t, res.Mentioned)
}

func TestLeadName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Acme Plumbing", leadName("**Acme Plumbing** - local"))
	assert.Equal(t, "Joe's Pipes", leadName("[Joe's Pipes](https://joes.example) - cheap"))
	assert.Equal(t, "Blue Sky HVAC", leadName("Blue Sky HVAC: heating"))
	assert.Equal(t, "", leadName("Call early in the day"))
	assert.Equal(t, "", leadName("**Cost**: about $200"))
}
