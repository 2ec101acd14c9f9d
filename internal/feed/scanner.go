package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/logger"
	"github.com/rajasatyajit/incidentwatch/internal/relevance"
	"github.com/rajasatyajit/incidentwatch/internal/riskwindow"
	"golang.org/x/sync/errgroup"
)

// Searcher looks up articles for one area
type Searcher interface {
	Search(ctx context.Context, area relevance.Area, riskLevel string) ([]Article, error)
}

// Target is a watched area and its current risk level
type Target struct {
	Area      relevance.Area `json:"area"`
	RiskLevel string         `json:"risk_level"`
}

// ParseTargets reads "name|state|level" entries separated by commas.
// State and level are optional; duplicate areas keep the first entry.
func ParseTargets(raw string) ([]Target, error) {
	var out []Target
	seen := make(map[string]bool)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		if len(parts) > 3 {
			return nil, fmt.Errorf("feed target %q: expected name|state|level", entry)
		}
		name := strings.TrimSpace(parts[0])
		slug := relevance.Normalize(name)
		if slug == "" {
			return nil, fmt.Errorf("feed target %q: empty area name", entry)
		}
		t := Target{Area: relevance.Area{Name: name, Slug: slug}}
		if len(parts) > 1 {
			t.Area.State = relevance.Normalize(parts[1])
		}
		if len(parts) > 2 {
			level, ok := riskwindow.ParseLevel(parts[2])
			if !ok {
				return nil, fmt.Errorf("feed target %q: unknown risk level %q", entry, parts[2])
			}
			t.RiskLevel = string(level)
		}
		if seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, t)
	}
	return out, nil
}

// Scanner searches several areas with bounded concurrency
type Scanner struct {
	searcher Searcher
	workers  int
}

// NewScanner creates a scanner running at most workers searches at once
func NewScanner(s Searcher, workers int) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{searcher: s, workers: workers}
}

// ScanAreas searches every target and returns each area's own hits keyed
// by area slug. Areas whose search failed are absent from the map. A
// failing area does not stop the others; its error is returned alongside
// whatever was found.
func (s *Scanner) ScanAreas(ctx context.Context, targets []Target) (map[string][]Article, error) {
	var (
		mu     sync.Mutex
		byArea = make(map[string][]Article, len(targets))
		errs   apperrors.MultiError
	)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			arts, err := s.searcher.Search(ctx, t.Area, t.RiskLevel)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("Feed search failed", "area", t.Area.Slug, "error", err)
				errs.Add(err)
				return nil
			}
			byArea[t.Area.Slug] = sortNewest(append([]Article(nil), arts...))
			return nil
		})
	}
	_ = g.Wait()

	return byArea, errs.ErrOrNil()
}

// Merge flattens per-area results. An article found for several areas is
// kept once with its best score.
func Merge(byArea map[string][]Article) []Article {
	merged := make(map[string]Article)
	for _, arts := range byArea {
		for _, a := range arts {
			if prev, ok := merged[a.Key]; !ok || a.Score > prev.Score || (a.Score == prev.Score && a.Area < prev.Area) {
				merged[a.Key] = a
			}
		}
	}

	out := make([]Article, 0, len(merged))
	for _, a := range merged {
		out = append(out, a)
	}
	return sortNewest(out)
}

func sortNewest(arts []Article) []Article {
	sort.Slice(arts, func(i, j int) bool {
		if !arts[i].SeenAt.Equal(arts[j].SeenAt) {
			return arts[i].SeenAt.After(arts[j].SeenAt)
		}
		return arts[i].Key < arts[j].Key
	})
	return arts
}
