package eutel

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
)

// PreciseTicks places major ticks on round multiples of the range and labels
// them without trailing noise. Labels show Value*Scale when Scale is set, so
// an axis in mm can be labelled in µm with Scale 1000.
type PreciseTicks struct {
	NSuggestedTicks int
	Scale           float64
}

func (t PreciseTicks) Ticks(min, max float64) []plot.Tick {
	if t.NSuggestedTicks < 2 {
		t.NSuggestedTicks = 4
	}
	if t.Scale == 0 {
		t.Scale = 1
	}

	if !(max > min) || math.IsInf(max-min, 0) {
		return nil
	}

	tens := math.Pow10(int(math.Floor(math.Log10(max - min))))
	n := (max - min) / tens
	for n < float64(t.NSuggestedTicks)-1 {
		tens /= 10
		n = (max - min) / tens
	}

	majorMult := int(n / float64(t.NSuggestedTicks-1))
	switch majorMult {
	case 7:
		majorMult = 6
	case 9:
		majorMult = 8
	}
	majorDelta := float64(majorMult) * tens
	val := math.Floor(min/majorDelta) * majorDelta
	var labels []float64
	for val <= max {
		if val >= min {
			labels = append(labels, val)
		}
		val += majorDelta
	}
	top := math.Max(math.Abs(val), majorDelta)
	prec := int(math.Ceil(math.Log10(top)) - math.Floor(math.Log10(majorDelta)))

	var ticks []plot.Tick
	for _, v := range labels {
		v = round(v, prec)
		ticks = append(ticks, plot.Tick{Value: v, Label: formatFloatTick(round(v*t.Scale, prec), -1)})
	}

	minorDelta := majorDelta / 2
	switch majorMult {
	case 3, 6:
		minorDelta = majorDelta / 3
	case 5:
		minorDelta = majorDelta / 5
	}
	val = math.Floor(min/minorDelta) * minorDelta
	for ; val <= max; val += minorDelta {
		if val < min || isMajor(ticks, val, minorDelta) {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: val})
	}
	return ticks
}

// isMajor reports whether v lies on a labelled tick, within a small fraction
// of the minor spacing.
func isMajor(ticks []plot.Tick, v, delta float64) bool {
	for _, t := range ticks {
		if t.Label != "" && math.Abs(t.Value-v) < 1e-6*delta {
			return true
		}
	}
	return false
}

func round(x float64, prec int) float64 {
	if x == 0 {
		// no negative zero
		return 0
	}
	if prec >= 0 && x == math.Trunc(x) {
		return x
	}
	pow := math.Pow10(prec)
	intermed := x * pow
	if math.IsInf(intermed, 0) {
		return x
	}
	if x < 0 {
		x = math.Ceil(intermed - 0.5)
	} else {
		x = math.Floor(intermed + 0.5)
	}
	if x == 0 {
		return 0
	}
	return x / pow
}

func formatFloatTick(v float64, prec int) string {
	return strconv.FormatFloat(v, 'g', prec, 64)
}
