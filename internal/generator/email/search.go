package email

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sahilm/fuzzy"
)

// SearchOptions filter a mailbox directory scan
type SearchOptions struct {
	// Pattern is a doublestar glob relative to the directory
	Pattern string
	Query   string
	From    string
	Subject string
	Since   time.Time
	Until   time.Time
	Limit   int
}

// SearchResult is one matching message
type SearchResult struct {
	Path    string
	From    string
	To      []string
	Subject string
	Date    time.Time
	Score   int
}

// Search scans .eml files under dir. A query matches fuzzily against the
// sender, recipients and subject, or literally against the body. Results are
// ordered by score and then newest first.
func Search(dir string, opts SearchOptions) ([]SearchResult, error) {
	if opts.Pattern == "" {
		opts.Pattern = "**/*.eml"
	}
	if !doublestar.ValidatePattern(opts.Pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", opts.Pattern)
	}
	paths, err := doublestar.Glob(os.DirFS(dir), opts.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var candidates []SearchResult
	var headers, bodies []string
	for _, rel := range paths {
		data, err := fs.ReadFile(os.DirFS(dir), rel)
		if err != nil {
			continue
		}
		p, err := Parse(data)
		if err != nil {
			continue
		}
		if opts.From != "" && !containsFold(p.From, opts.From) {
			continue
		}
		if opts.Subject != "" && !containsFold(p.Subject, opts.Subject) {
			continue
		}
		if !opts.Since.IsZero() && p.Date.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && p.Date.After(opts.Until) {
			continue
		}
		candidates = append(candidates, SearchResult{
			Path:    filepath.Join(dir, filepath.FromSlash(rel)),
			From:    p.From,
			To:      p.To,
			Subject: p.Subject,
			Date:    p.Date,
		})
		headers = append(headers, strings.Join([]string{p.From, strings.Join(p.To, " "), p.Subject}, " "))
		bodies = append(bodies, p.Body())
	}

	results := candidates
	if q := strings.TrimSpace(opts.Query); q != "" {
		fuzzyScores := map[int]int{}
		for _, m := range fuzzy.Find(q, headers) {
			fuzzyScores[m.Index] = m.Score
		}
		results = nil
		for i, r := range candidates {
			score, matched := fuzzyScores[i]
			switch {
			case containsFold(headers[i], q):
				score += 2000
				matched = true
			case containsFold(bodies[i], q):
				score += 1000
				matched = true
			}
			if !matched {
				continue
			}
			r.Score = score
			results = append(results, r)
		}
	}
	slices.SortStableFunc(results, func(a, b SearchResult) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return b.Date.Compare(a.Date)
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
