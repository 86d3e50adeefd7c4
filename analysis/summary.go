package analysis

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/maps"
)

// Summary counts events, rejections and per-plane efficiency over a run.
type Summary struct {
	Events  int
	Skipped int
	Errors  int

	counts map[string]int
	pass   []float64
	total  []float64
	notes  []string
}

func NewSummary(nplanes int) *Summary {
	return &Summary{
		counts: make(map[string]int),
		pass:   make([]float64, nplanes),
		total:  make([]float64, nplanes),
	}
}

// Count adds n to the named counter.
func (s *Summary) Count(key string, n int) {
	s.counts[key] += n
}

func (s *Summary) Counter(key string) int {
	return s.counts[key]
}

// AddEfficiency records one tested track on plane.
func (s *Summary) AddEfficiency(plane int, efficient bool) {
	if plane < 0 || plane >= len(s.total) {
		return
	}
	s.total[plane]++
	if efficient {
		s.pass[plane]++
	}
}

// Efficiency returns the efficiency of plane with its binomial error and
// the number of tested tracks. It is NaN without tracks.
func (s *Summary) Efficiency(plane int) (eff, err float64, n int) {
	if plane < 0 || plane >= len(s.total) || s.total[plane] == 0 {
		return math.NaN(), math.NaN(), 0
	}
	t := s.total[plane]
	eff = s.pass[plane] / t
	return eff, math.Sqrt(eff * (1 - eff) / t), int(t)
}

// Note keeps a line for the end of run report.
func (s *Summary) Note(line string) {
	s.notes = append(s.notes, line)
}

func (s *Summary) Log(logger Logger) {
	logger.Info(fmt.Sprintf("events processed: %d, skipped: %d, errors: %d", s.Events, s.Skipped, s.Errors), "summary")
	keys := maps.Keys(s.counts)
	sort.Strings(keys)
	for _, k := range keys {
		logger.Info(fmt.Sprintf("%-28s %10d", k, s.counts[k]), "summary")
	}
	for plane := range s.total {
		eff, err, n := s.Efficiency(plane)
		if n == 0 {
			continue
		}
		logger.Info(fmt.Sprintf("plane %d efficiency: %.4f +- %.4f (%d tracks)", plane, eff, err, n), "summary")
	}
	for _, line := range s.notes {
		logger.Info(line, "summary")
	}
}
