package relevance

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rajasatyajit/incidentwatch/pkg/utils"
)

// Zone is how closely an incident relates to a route corridor
type Zone string

const (
	ZoneOnRoute    Zone = "on_route"
	ZoneRouteState Zone = "route_state"
	ZoneOffRoute   Zone = "off_route"
)

// Score returns the fixed relevance score for the zone
func (z Zone) Score() float64 {
	switch z {
	case ZoneOnRoute:
		return 1.0
	case ZoneRouteState:
		return 0.5
	default:
		return 0.1
	}
}

// Primary reports whether incidents in the zone count toward the primary total
func (z Zone) Primary() bool {
	return z == ZoneOnRoute || z == ZoneRouteState
}

// Result is a route classification
type Result struct {
	Zone    Zone    `json:"zone"`
	Score   float64 `json:"score"`
	Primary bool    `json:"primary"`
	// Rule names the check that decided the zone
	Rule string `json:"rule"`
}

func resultFor(z Zone, rule string) Result {
	return Result{Zone: z, Score: z.Score(), Primary: z.Primary(), Rule: rule}
}

// roadStopwords are dropped when splitting road names into query words
var roadStopwords = map[string]bool{
	"road":       true,
	"highway":    true,
	"expressway": true,
	"route":      true,
}

// roadKeywords mark a location as describing a road rather than a place.
// They match anywhere in the normalized text, so "tollgate" and
// "roadblock" count.
var roadKeywords = []string{"highway", "expressway", "road", "junction", "interchange", "toll", "gate"}

// Classifier answers relevance questions against a road table.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	states map[string]string // normalized id -> display name
	roads  map[string]RoadRecord
}

// NewClassifier indexes a parsed table
func NewClassifier(t *Table) *Classifier {
	c := &Classifier{
		states: make(map[string]string, len(t.States)),
		roads:  make(map[string]RoadRecord, len(t.Roads)),
	}
	for _, s := range t.States {
		c.states[Normalize(s.ID)] = s.Name
	}
	for _, r := range t.Roads {
		c.roads[pairKey(r.States[0], r.States[1])] = r
	}
	return c
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns the classifier built from the embedded road table
func Default() *Classifier {
	defaultOnce.Do(func() {
		t, err := ParseTable(defaultTable)
		if err != nil {
			panic(fmt.Sprintf("embedded road table: %v", err))
		}
		defaultClassifier = NewClassifier(t)
	})
	return defaultClassifier
}

// StateName returns the display name for a state id, or the id itself
func (c *Classifier) StateName(id string) string {
	if name, ok := c.states[Normalize(id)]; ok {
		return name
	}
	return id
}

// KnownState reports whether the id is in the state registry
func (c *Classifier) KnownState(id string) bool {
	_, ok := c.states[Normalize(id)]
	return ok
}

// RoadNamesForRoute collects the road names and query terms for every
// consecutive state pair of an ordered route. Duplicates are dropped,
// first occurrence wins.
func (c *Classifier) RoadNamesForRoute(stateIDs []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		key := Normalize(s)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, s)
	}
	for i := 0; i+1 < len(stateIDs); i++ {
		road, ok := c.roads[pairKey(stateIDs[i], stateIDs[i+1])]
		if !ok {
			continue
		}
		add(road.Name)
		for _, term := range road.Terms {
			add(term)
		}
		for _, w := range words(Normalize(road.Name), wordMin) {
			if !roadStopwords[w] {
				add(w)
			}
		}
	}
	return out
}

// routeInput is a location and route, normalized once
type routeInput struct {
	loc        string
	states     []string
	stateNames []string
	roads      []string
}

type routeRule struct {
	name string
	zone Zone
	fn   func(in *routeInput) bool
}

// routeRules are checked in order. A road hit outranks a state hit, which
// outranks off_route.
var routeRules = []routeRule{
	{"unknown_location", ZoneRouteState, func(in *routeInput) bool {
		return in.loc == "" || in.loc == "unknown"
	}},
	{"road_name", ZoneOnRoute, func(in *routeInput) bool {
		if len(in.roads) == 0 || in.bareState() {
			return false
		}
		_, ok := matchNormalized(in.loc, in.roads)
		return ok
	}},
	{"road_keyword", ZoneOnRoute, func(in *routeInput) bool {
		return in.hasRoadKeyword() && in.containsStateID()
	}},
	{"route_state", ZoneRouteState, func(in *routeInput) bool {
		if in.containsStateID() {
			return true
		}
		for _, name := range in.stateNames {
			if sharesWord(in.loc, name, wordMin) {
				return true
			}
		}
		return false
	}},
}

// bareState is true when the location is nothing but a route state's id or name
func (in *routeInput) bareState() bool {
	for i, id := range in.states {
		if in.loc == id || in.loc == in.stateNames[i] {
			return true
		}
	}
	return false
}

func (in *routeInput) containsStateID() bool {
	for _, id := range in.states {
		if id != "" && (in.loc == id || strings.Contains(in.loc, id)) {
			return true
		}
	}
	return false
}

func (in *routeInput) hasRoadKeyword() bool {
	return utils.ContainsAny(in.loc, roadKeywords)
}

// ClassifyRoute places a free-text incident location relative to a route
// given as ordered state ids plus its road names.
func (c *Classifier) ClassifyRoute(location string, routeStateIDs, routeRoadNames []string) Result {
	in := &routeInput{loc: Normalize(location)}
	for _, id := range routeStateIDs {
		n := Normalize(id)
		if n == "" {
			continue
		}
		in.states = append(in.states, n)
		in.stateNames = append(in.stateNames, Normalize(c.StateName(id)))
	}
	for _, r := range routeRoadNames {
		if n := Normalize(r); n != "" {
			in.roads = append(in.roads, n)
		}
	}
	for _, rule := range routeRules {
		if rule.fn(in) {
			return resultFor(rule.zone, rule.name)
		}
	}
	return resultFor(ZoneOffRoute, "off_route")
}

// Route derives the road names for the route and classifies the location
func (c *Classifier) Route(location string, routeStateIDs []string) Result {
	return c.ClassifyRoute(location, routeStateIDs, c.RoadNamesForRoute(routeStateIDs))
}

// Area is a single named area a subscriber follows
type Area struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	State string `json:"state,omitempty"`
}

// AreaMatch is the binary relevance of a location to an area
type AreaMatch struct {
	InArea bool    `json:"in_area"`
	Score  float64 `json:"score"`
	// SameState is set when the location names the area's state
	SameState bool `json:"same_state"`
}

// ClassifyArea decides whether a location falls inside a named area
func (c *Classifier) ClassifyArea(location string, area Area) AreaMatch {
	loc := Normalize(location)
	var m AreaMatch
	if loc == "" {
		return m
	}
	if _, ok := matchNormalized(loc, []string{area.Name, area.Slug}); ok {
		m.InArea = true
		m.Score = 1.0
	}
	if area.State != "" {
		st := Normalize(area.State)
		m.SameState = loc == st || strings.Contains(loc, st) ||
			sharesWord(loc, Normalize(c.StateName(area.State)), wordMin)
	}
	return m
}

// Summary counts classified incidents per zone
type Summary struct {
	OnRoute    int `json:"on_route"`
	RouteState int `json:"route_state"`
	OffRoute   int `json:"off_route"`
	Primary    int `json:"primary"`
	Secondary  int `json:"secondary"`
}

// Tally summarises zones for a route overview
func Tally(zones []Zone) Summary {
	var s Summary
	for _, z := range zones {
		switch z {
		case ZoneOnRoute:
			s.OnRoute++
		case ZoneRouteState:
			s.RouteState++
		default:
			s.OffRoute++
		}
		if z.Primary() {
			s.Primary++
		} else {
			s.Secondary++
		}
	}
	return s
}
