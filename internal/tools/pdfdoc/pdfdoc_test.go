package pdfdoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func storeWithDoc() *Store {
	s := NewStore()
	s.docs["paper"] = &Document{
		FilePath: "/tmp/paper.pdf",
		Pages: []PageText{
			{Page: 1, Text: "Abstract. We study caching strategies for distributed systems."},
			{Page: 2, Text: "Section two discusses eviction. Caching is hard. Caching is everywhere."},
			{Page: 3, Text: "Conclusion and future work."},
		},
		TotalChars: 150,
	}
	return s
}

func TestSelectPages(t *testing.T) {
	pages := []PageText{{Page: 1}, {Page: 2}, {Page: 3}, {Page: 4}}

	all, err := selectPages(pages, "all")
	require.NoError(t, err)
	require.Len(t, all, 4)

	one, err := selectPages(pages, "3")
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Equal(t, 3, one[0].Page)

	rng, err := selectPages(pages, "2-3")
	require.NoError(t, err)
	require.Len(t, rng, 2)

	// Default range.
	def, err := selectPages(pages, "")
	require.NoError(t, err)
	require.Len(t, def, 3)

	_, err = selectPages(pages, "x-y")
	require.Error(t, err)
}

func TestContent(t *testing.T) {
	s := storeWithDoc()

	out, err := s.Content("paper", "1")
	require.NoError(t, err)
	require.Contains(t, out, "--- Page 1 ---")
	require.Contains(t, out, "caching strategies")
	require.NotContains(t, out, "eviction")

	_, err = s.Content("paper", "9")
	require.Error(t, err)

	_, err = s.Content("missing", "all")
	require.Error(t, err)
	require.Contains(t, err.Error(), "load_pdf")
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", maxContentChars+10)
	out := truncate(long, maxContentChars)
	require.Contains(t, out, "[Content truncated due to length...]")
	require.Equal(t, long[:100], out[:100])

	short := "short"
	require.Equal(t, short, truncate(short, maxContentChars))
}

func TestSearch(t *testing.T) {
	s := storeWithDoc()

	out, err := s.Search("paper", "caching", 3)
	require.NoError(t, err)
	require.Contains(t, out, "Found 3 match(es)")
	require.Contains(t, out, "page 1")
	require.Contains(t, out, "page 2")

	out, err = s.Search("paper", "nonexistent term", 3)
	require.NoError(t, err)
	require.Contains(t, out, "No matches found")
}

func TestFindMatches_ContextAndCase(t *testing.T) {
	text := "one two three TARGET four five six"
	matches := findMatches(text, "target", 2, 5)
	require.Len(t, matches, 1)
	require.Equal(t, "two three TARGET four five", matches[0])

	// Match cap.
	repeated := strings.Repeat("hit ", 10)
	require.Len(t, findMatches(repeated, "hit", 1, 5), 5)

	require.Empty(t, findMatches(text, "", 2, 5))
}

func TestInfoListExtract(t *testing.T) {
	s := storeWithDoc()

	info, err := s.Info("paper")
	require.NoError(t, err)
	require.Contains(t, info, "3 pages")

	require.Contains(t, s.List(), "paper")
	require.Equal(t, "No PDFs currently loaded.", NewStore().List())

	page, err := s.ExtractPage("paper", 3)
	require.NoError(t, err)
	require.Contains(t, page, "Conclusion")

	_, err = s.ExtractPage("paper", 42)
	require.Error(t, err)
}
