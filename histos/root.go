package histos

import (
	"github.com/pkg/errors"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/hbook"
)

// WriteROOT stores every histogram in a new ROOT file. Efficiencies and
// residual grids are written as their component histograms.
func (r *Registry) WriteROOT(fname string) error {
	f, err := groot.Create(fname)
	if err != nil {
		return errors.Wrapf(err, "creating ROOT file %q", fname)
	}

	put1 := func(name string, h *hbook.H1D) error {
		return errors.Wrapf(f.Put(name, rhist.NewH1DFrom(h)), "writing %q", name)
	}
	put2 := func(name string, h *hbook.H2D) error {
		return errors.Wrapf(f.Put(name, rhist.NewH2DFrom(h)), "writing %q", name)
	}

	err = func() error {
		for _, name := range sortedKeys(r.h1) {
			if err := put1(name, r.h1[name]); err != nil {
				return err
			}
		}
		for _, name := range sortedKeys(r.h2) {
			if err := put2(name, r.h2[name]); err != nil {
				return err
			}
		}
		for _, name := range sortedKeys(r.eff) {
			e := r.eff[name]
			if err := put2(name+"_pass", e.Pass()); err != nil {
				return err
			}
			if err := put2(name+"_total", e.Total()); err != nil {
				return err
			}
		}
		for _, name := range sortedKeys(r.res) {
			g := r.res[name]
			if err := put2(name+"_count", g.hCount); err != nil {
				return err
			}
			if err := put2(name+"_sum", g.hV); err != nil {
				return err
			}
			if err := put2(name+"_sum2", g.hV2); err != nil {
				return err
			}
		}
		return nil
	}()
	if err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "closing ROOT file %q", fname)
}
