// Package pdfdoc keeps PDFs loaded in memory, one text extraction per load,
// and serves page-range content, flexible search and per-page text on top.
package pdfdoc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// maxContentChars caps the text returned to the model in one tool result.
const maxContentChars = 8000

// PageText is the extracted text of a single page.
type PageText struct {
	Page int
	Text string
}

// Document is one loaded PDF.
type Document struct {
	FilePath   string
	Pages      []PageText
	TotalChars int
}

// Store is an in-memory registry of loaded PDFs keyed by ID.
type Store struct {
	mu   sync.Mutex
	docs map[string]*Document
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// Load extracts per-page text from the PDF at filePath and registers it under
// pdfID (the file stem when empty). Returns a human-readable status line.
func (s *Store) Load(filePath, pdfID string) (string, error) {
	if pdfID == "" {
		base := filepath.Base(filePath)
		pdfID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("file not found: %s", filePath)
	}

	pages, err := extractPages(data)
	if err != nil {
		return "", fmt.Errorf("loading PDF: %w", err)
	}

	doc := &Document{FilePath: filePath, Pages: pages}
	for _, p := range pages {
		doc.TotalChars += len(p.Text)
	}

	s.mu.Lock()
	s.docs[pdfID] = doc
	s.mu.Unlock()

	return fmt.Sprintf("Successfully loaded PDF '%s' with %d pages from %s", pdfID, len(pages), filePath), nil
}

// extractPages pulls per-page text out of raw PDF bytes.
func extractPages(data []byte) ([]PageText, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}

	pages := make([]PageText, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return pages, fmt.Errorf("page %d: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return pages, fmt.Errorf("extractor for page %d: %w", i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return pages, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, PageText{Page: i, Text: strings.TrimSpace(text)})
	}
	return pages, nil
}

func (s *Store) get(pdfID string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[pdfID]
	if !ok {
		return nil, fmt.Errorf("PDF '%s' not loaded. Use load_pdf first", pdfID)
	}
	return doc, nil
}

// Content returns text for a page range: "all", "5" or "1-10". Output is
// truncated at maxContentChars.
func (s *Store) Content(pdfID, pages string) (string, error) {
	doc, err := s.get(pdfID)
	if err != nil {
		return "", err
	}

	selected, err := selectPages(doc.Pages, pages)
	if err != nil {
		return "", err
	}
	if len(selected) == 0 {
		return "", fmt.Errorf("no pages found for range '%s'", pages)
	}

	var b strings.Builder
	for _, p := range selected {
		fmt.Fprintf(&b, "\n--- Page %d ---\n%s\n", p.Page, p.Text)
	}
	return truncate(b.String(), maxContentChars), nil
}

// selectPages filters pages by a range spec.
func selectPages(all []PageText, spec string) ([]PageText, error) {
	if spec == "" {
		spec = "1-3"
	}
	if spec == "all" {
		return all, nil
	}

	var start, end int
	if strings.Contains(spec, "-") {
		if _, err := fmt.Sscanf(spec, "%d-%d", &start, &end); err != nil {
			return nil, fmt.Errorf("invalid page range format. Use 'all', '5', or '1-10'")
		}
	} else {
		if _, err := fmt.Sscanf(spec, "%d", &start); err != nil {
			return nil, fmt.Errorf("invalid page range format. Use 'all', '5', or '1-10'")
		}
		end = start
	}

	var out []PageText
	for _, p := range all {
		if p.Page >= start && p.Page <= end {
			out = append(out, p)
		}
	}
	return out, nil
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "\n\n[Content truncated due to length...]"
}

// Search finds case-insensitive occurrences of query and reports each with
// the requested number of context words on both sides.
func (s *Store) Search(pdfID, query string, contextWords int) (string, error) {
	doc, err := s.get(pdfID)
	if err != nil {
		return "", err
	}
	if contextWords <= 0 {
		contextWords = 50
	}

	var b strings.Builder
	total := 0
	for _, p := range doc.Pages {
		matches := findMatches(p.Text, query, contextWords, 5)
		for _, m := range matches {
			total++
			fmt.Fprintf(&b, "\nMatch %d (page %d):\n...%s...\n", total, p.Page, m)
		}
	}

	if total == 0 {
		return fmt.Sprintf("No matches found for '%s' in PDF '%s'", query, pdfID), nil
	}
	header := fmt.Sprintf("Found %d match(es) for '%s' in PDF '%s':\n", total, query, pdfID)
	return truncate(header+b.String(), maxContentChars), nil
}

// findMatches locates up to maxMatches occurrences of query in text and
// renders each with contextWords words of surrounding context.
func findMatches(text, query string, contextWords, maxMatches int) []string {
	if query == "" {
		return nil
	}
	lower := strings.ToLower(text)
	needle := strings.ToLower(query)

	var out []string
	offset := 0
	for len(out) < maxMatches {
		idx := strings.Index(lower[offset:], needle)
		if idx == -1 {
			break
		}
		idx += offset

		before := strings.Fields(text[:idx])
		if len(before) > contextWords {
			before = before[len(before)-contextWords:]
		}
		after := strings.Fields(text[idx+len(needle):])
		if len(after) > contextWords {
			after = after[:contextWords]
		}

		snippet := strings.TrimSpace(strings.Join(before, " ") + " " + text[idx:idx+len(needle)] + " " + strings.Join(after, " "))
		out = append(out, snippet)

		offset = idx + len(needle)
	}
	return out
}

// Info summarizes a loaded PDF.
func (s *Store) Info(pdfID string) (string, error) {
	doc, err := s.get(pdfID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PDF '%s': %d pages, %d characters, loaded from %s",
		pdfID, len(doc.Pages), doc.TotalChars, doc.FilePath), nil
}

// List names every loaded PDF.
func (s *Store) List() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.docs) == 0 {
		return "No PDFs currently loaded."
	}
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("Loaded PDFs:\n")
	for _, id := range ids {
		doc := s.docs[id]
		fmt.Fprintf(&b, "- %s (%d pages, %s)\n", id, len(doc.Pages), doc.FilePath)
	}
	return b.String()
}

// ExtractPage returns the raw text of one page.
func (s *Store) ExtractPage(pdfID string, pageNumber int) (string, error) {
	doc, err := s.get(pdfID)
	if err != nil {
		return "", err
	}
	for _, p := range doc.Pages {
		if p.Page == pageNumber {
			return truncate(p.Text, maxContentChars), nil
		}
	}
	return "", fmt.Errorf("page %d not found in PDF '%s' (%d pages)", pageNumber, pdfID, len(doc.Pages))
}
