package posting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAd = "Title\nOpen\nPosted 2 days ago\n$50 USD\nDescription text\nRequirements\n- Do X\nDeliverables\n- File Y"

func TestParsePostingExtractsAllSections(t *testing.T) {
	t.Parallel()

	job, ok := ParsePosting(sampleAd)
	require.True(t, ok)

	assert.Equal(t, "Title", job.Title)
	assert.Equal(t, StatusOpen, job.Status)
	assert.Equal(t, "Posted 2 days ago", job.PostedTime)
	assert.Contains(t, job.Budget, "$50")
	assert.Equal(t, "Description text", job.Description)
	assert.Equal(t, []string{"Do X"}, job.Requirements)
	assert.Equal(t, []string{"File Y"}, job.Deliverables)
}

func TestParsePostingRawTextIsVerbatim(t *testing.T) {
	t.Parallel()

	job, ok := ParsePosting(sampleAd)
	require.True(t, ok)
	assert.Equal(t, sampleAd, job.RawText)
}

func TestParsePostingAwardedWithInlinePostedTime(t *testing.T) {
	t.Parallel()

	job, ok := ParsePosting("Data cleanup\nOPPORTUNITY AWARDED Posted last week\n₹1500 INR\nSome work")
	require.True(t, ok)
	assert.Equal(t, StatusAwarded, job.Status)
	assert.Equal(t, "OPPORTUNITY AWARDED Posted last week", job.PostedTime)
}

func TestParsePostingFixedPriceBecomesPaymentTermsAndBudgetBackfill(t *testing.T) {
	t.Parallel()

	job, ok := ParsePosting("Sheet entry\nOpen\nFIXED PRICE\n$120 USD\nType the data in")
	require.True(t, ok)
	assert.Contains(t, job.PaymentTerms, "FIXED PRICE")
	assert.Contains(t, job.Budget, "$120")
}

func TestParsePostingExperienceLevelAfterColonOrNextLine(t *testing.T) {
	t.Parallel()

	job, _ := ParsePosting("Job A\nOpen\n$10 USD\nExperience Level: Entry")
	assert.Equal(t, "Entry", job.ExperienceLevel)

	job, _ = ParsePosting("Job B\nOpen\n$10 USD\nExperience Level\nExpert")
	assert.Equal(t, "Expert", job.ExperienceLevel)
}

func TestParsePostingIdealSectionFeedsRequirements(t *testing.T) {
	t.Parallel()

	job, ok := ParsePosting("Scraper needed\nOpen\n$40 USD\nScrape a site\nIdeal Skills and Experience\n- Python scraping\n- Attention to detail")
	require.True(t, ok)
	assert.Equal(t, []string{"Python scraping", "Attention to detail"}, job.Requirements)
}

func TestParsePostingUnknownStatusDefault(t *testing.T) {
	t.Parallel()

	job, ok := ParsePosting("Just a title\n$25 USD\nshort gig")
	require.True(t, ok)
	assert.Equal(t, StatusUnknown, job.Status)
}

func TestSplitPostingsSeparatorAndQualification(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"First job\nOpen\n$50 USD\ndo things",
		"Not a job because it has neither status nor budget\njust prose",
		"Second job\nAwarded\ndo other things",
	}, "\n\n\n\n")

	segments := SplitPostings(text)
	require.Len(t, segments, 2)
	assert.True(t, strings.HasPrefix(segments[0], "First job"))
	assert.True(t, strings.HasPrefix(segments[1], "Second job"))
}

func TestSplitPostingsRejectsOverlongTitleLine(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 160) + "\nOpen\n$50 USD"
	assert.Empty(t, SplitPostings(long))
}

func TestParseTextDocumentMetadata(t *testing.T) {
	t.Parallel()

	doc := ParseText(sampleAd + "\n\n\n\nSecond\nOpen\n$10 USD\nmore work")
	assert.Equal(t, 2, doc.Metadata.TotalJobs)
	require.Len(t, doc.Jobs, 2)
	assert.Equal(t, "Second", doc.Jobs[1].Title)
}
