// Package histos owns the histograms of a run. Histograms are booked once by
// name and filled by name; the registry is not safe for concurrent use and
// is meant to be filled from a single goroutine.
package histos

import (
	"sort"

	"go-hep.org/x/hep/hbook"
	"golang.org/x/exp/maps"
)

type Registry struct {
	h1      map[string]*hbook.H1D
	h2      map[string]*hbook.H2D
	eff     map[string]*Efficiency
	res     map[string]*ResGrid
	titles  map[string]string
	missing map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		h1:      make(map[string]*hbook.H1D),
		h2:      make(map[string]*hbook.H2D),
		eff:     make(map[string]*Efficiency),
		res:     make(map[string]*ResGrid),
		titles:  make(map[string]string),
		missing: make(map[string]int),
	}
}

func annotate(ann hbook.Annotation, name, title string) {
	ann["name"] = name
	ann["title"] = title
}

// Book1D creates the histogram, or returns the existing one of that name.
func (r *Registry) Book1D(name, title string, n int, xmin, xmax float64) *hbook.H1D {
	if h, ok := r.h1[name]; ok {
		return h
	}
	h := hbook.NewH1D(n, xmin, xmax)
	annotate(h.Annotation(), name, title)
	r.h1[name] = h
	r.titles[name] = title
	return h
}

func (r *Registry) Book2D(name, title string, nx int, xmin, xmax float64, ny int, ymin, ymax float64) *hbook.H2D {
	if h, ok := r.h2[name]; ok {
		return h
	}
	h := hbook.NewH2D(nx, xmin, xmax, ny, ymin, ymax)
	annotate(h.Annotation(), name, title)
	r.h2[name] = h
	r.titles[name] = title
	return h
}

func (r *Registry) BookEfficiency(name, title string, nx int, xmin, xmax float64, ny int, ymin, ymax float64) *Efficiency {
	if e, ok := r.eff[name]; ok {
		return e
	}
	e := NewEfficiency(nx, xmin, xmax, ny, ymin, ymax)
	annotate(e.pass.Annotation(), name+"_pass", title+" (pass)")
	annotate(e.total.Annotation(), name+"_total", title+" (total)")
	r.eff[name] = e
	r.titles[name] = title
	return e
}

func (r *Registry) BookResGrid(name, title string, nx int, xmin, xmax float64, ny int, ymin, ymax float64) *ResGrid {
	if g, ok := r.res[name]; ok {
		return g
	}
	g := NewResGrid(nx, xmin, xmax, ny, ymin, ymax)
	annotate(g.hCount.Annotation(), name+"_count", title+" (entries)")
	annotate(g.hV.Annotation(), name+"_sum", title+" (sum)")
	annotate(g.hV2.Annotation(), name+"_sum2", title+" (sum of squares)")
	r.res[name] = g
	r.titles[name] = title
	return g
}

func weight(w []float64) float64 {
	if len(w) == 0 {
		return 1
	}
	return w[0]
}

// Fill1D fills with weight 1 unless a weight is given. Fills of unbooked
// names are counted and dropped.
func (r *Registry) Fill1D(name string, x float64, w ...float64) {
	h, ok := r.h1[name]
	if !ok {
		r.missing[name]++
		return
	}
	h.Fill(x, weight(w))
}

func (r *Registry) Fill2D(name string, x, y float64, w ...float64) {
	h, ok := r.h2[name]
	if !ok {
		r.missing[name]++
		return
	}
	h.Fill(x, y, weight(w))
}

func (r *Registry) FillEff(name string, x, y, w float64) {
	e, ok := r.eff[name]
	if !ok {
		r.missing[name]++
		return
	}
	e.Fill(x, y, w)
}

func (r *Registry) FillRes(name string, x, y, z float64) {
	g, ok := r.res[name]
	if !ok {
		r.missing[name]++
		return
	}
	g.Fill(x, y, z)
}

func (r *Registry) H1D(name string) (*hbook.H1D, bool) {
	h, ok := r.h1[name]
	return h, ok
}

func (r *Registry) H2D(name string) (*hbook.H2D, bool) {
	h, ok := r.h2[name]
	return h, ok
}

func (r *Registry) Efficiency(name string) (*Efficiency, bool) {
	e, ok := r.eff[name]
	return e, ok
}

func (r *Registry) ResGrid(name string) (*ResGrid, bool) {
	g, ok := r.res[name]
	return g, ok
}

// Title returns the booked title of name.
func (r *Registry) Title(name string) string {
	return r.titles[name]
}

// Names lists every booked name in lexical order.
func (r *Registry) Names() []string {
	names := maps.Keys(r.titles)
	sort.Strings(names)
	return names
}

// Missing returns the number of dropped fills per unbooked name.
func (r *Registry) Missing() map[string]int {
	return maps.Clone(r.missing)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	sort.Strings(keys)
	return keys
}
