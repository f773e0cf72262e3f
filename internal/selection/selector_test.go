package selection

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/pipeline"
)

func scoredItem(title, summary string, score float64) pipeline.Item {
	return pipeline.Item{
		ID:      uuid.New(),
		Title:   title,
		Summary: summary,
		Score:   &score,
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		title   string
		summary string
		want    pipeline.Category
	}{
		{
			name:  "news",
			title: "Vendor announces new release",
			want:  pipeline.CategoryNews,
		},
		{
			name:    "thought leadership",
			title:   "The future of robotics",
			summary: "Trend analysis and insight for operators.",
			want:    pipeline.CategoryThoughtLeadership,
		},
		{
			name:    "case study",
			title:   "Customer success story",
			summary: "Implementation results and roi for one client.",
			want:    pipeline.CategoryCaseStudy,
		},
		{
			name:  "no indicators defaults to news",
			title: "Quarterly logistics report",
			want:  pipeline.CategoryNews,
		},
		{
			name:    "tie goes to news",
			title:   "Launch prediction",
			summary: "",
			want:    pipeline.CategoryNews,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(pipeline.Item{Title: tc.title, Summary: tc.summary})
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSelectDiversePoolWithinTarget(t *testing.T) {
	t.Parallel()

	s := New(zap.NewNop())
	items := []pipeline.Item{
		scoredItem("a", "", 0.5),
		scoredItem("b", "", 0.9),
	}
	got := s.SelectDiverse(items, 5, true)
	require.Equal(t, items, got)
}

func TestSelectDiverseWithoutDiversityTakesTopScores(t *testing.T) {
	t.Parallel()

	s := New(zap.NewNop())
	items := []pipeline.Item{
		scoredItem("low", "", 0.4),
		scoredItem("high", "", 0.95),
		scoredItem("mid", "", 0.7),
	}
	got := s.SelectDiverse(items, 2, false)
	require.Len(t, got, 2)
	require.Equal(t, "high", got[0].Title)
	require.Equal(t, "mid", got[1].Title)
}

func TestSelectDiverseSpreadsAcrossCategories(t *testing.T) {
	t.Parallel()

	s := New(zap.NewNop())

	// Three news items, two thought pieces, one case study. A target of
	// four allocates two to news (first encountered, takes the remainder)
	// and one to each other category.
	items := []pipeline.Item{
		scoredItem("Vendor announces expansion", "", 0.9),
		scoredItem("New release lands", "", 0.85),
		scoredItem("Latest update ships", "", 0.8),
		scoredItem("Future trend analysis", "", 0.75),
		scoredItem("Prediction and insight", "", 0.7),
		scoredItem("Customer case study results", "", 0.65),
	}
	got := s.SelectDiverse(items, 4, true)
	require.Len(t, got, 4)

	counts := map[pipeline.Category]int{}
	for _, item := range got {
		counts[Classify(item)]++
	}
	require.Equal(t, 2, counts[pipeline.CategoryNews])
	require.Equal(t, 1, counts[pipeline.CategoryThoughtLeadership])
	require.Equal(t, 1, counts[pipeline.CategoryCaseStudy])

	// Final ordering is by score descending.
	for i := 1; i < len(got); i++ {
		require.GreaterOrEqual(t, *got[i-1].Score, *got[i].Score)
	}
}

func TestSelectDiverseBackfillsThinCategories(t *testing.T) {
	t.Parallel()

	s := New(zap.NewNop())

	// One case study, five news items, target four. The case-study bucket
	// cannot fill its allocation so news backfills by score.
	items := []pipeline.Item{
		scoredItem("Customer case study results", "", 0.9),
		scoredItem("Vendor announces a", "", 0.85),
		scoredItem("Vendor announces b", "", 0.8),
		scoredItem("Vendor announces c", "", 0.75),
		scoredItem("Vendor announces d", "", 0.7),
	}
	got := s.SelectDiverse(items, 4, true)
	require.Len(t, got, 4)

	counts := map[pipeline.Category]int{}
	for _, item := range got {
		counts[Classify(item)]++
	}
	require.Equal(t, 1, counts[pipeline.CategoryCaseStudy])
	require.Equal(t, 3, counts[pipeline.CategoryNews])
}

func TestSelectTieredPrefersExcellent(t *testing.T) {
	t.Parallel()

	s := New(zap.NewNop())

	items := []pipeline.Item{
		scoredItem("excellent one", "", 0.95),
		scoredItem("excellent two", "", 0.88),
		scoredItem("great announce", "", 0.7),
		scoredItem("great insight", "", 0.65),
		scoredItem("good filler", "", 0.55),
		scoredItem("below cutoff", "", 0.4),
	}
	got := s.SelectTiered(items, 10)

	titles := make([]string, len(got))
	for i, item := range got {
		titles[i] = item.Title
	}
	require.Contains(t, titles, "excellent one")
	require.Contains(t, titles, "excellent two")
	require.Contains(t, titles, "great announce")
	require.Contains(t, titles, "great insight")
	require.Contains(t, titles, "good filler")
	require.NotContains(t, titles, "below cutoff")

	// Excellent items lead the result.
	require.Equal(t, "excellent one", got[0].Title)
	require.Equal(t, "excellent two", got[1].Title)
}

func TestSelectTieredSkipsTier3WhenFull(t *testing.T) {
	t.Parallel()

	s := New(zap.NewNop())

	var items []pipeline.Item
	for i := 0; i < 6; i++ {
		items = append(items, scoredItem("excellent", "", 0.9))
	}
	for i := 0; i < 8; i++ {
		items = append(items, scoredItem("great announce", "", 0.7))
	}
	items = append(items, scoredItem("good filler", "", 0.55))

	// Target 10: tier 1 floor is 5, tier 2 floor is 7, so twelve items are
	// selected before tier 3 is even considered.
	got := s.SelectTiered(items, 10)
	require.Len(t, got, 12)
	for _, item := range got {
		require.GreaterOrEqual(t, *item.Score, 0.6)
	}
}

func TestSelectTieredEmptyPool(t *testing.T) {
	t.Parallel()

	s := New(zap.NewNop())
	require.Empty(t, s.SelectTiered(nil, 10))
}
