// Package lcioio reads and writes telescope events in LCIO files: hits in a
// TrackerHit collection and zero-suppressed pixel data in a TrackerData
// collection.
package lcioio

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go-hep.org/x/hep/lcio"

	"github.com/decibelcooper/eutel/pixel"
)

var ErrCollectionNotFound = errors.New("lcioio: collection not found")

// ErrOpenFile reports a file that could not be opened or created.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("lcioio: could not open %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error { return e.Err }

const (
	// HitEncoding is the cell ID layout of written hits.
	HitEncoding = "sensorID:7,properties:7"
	// ZSEncoding is the cell ID layout of written zero-suppressed data.
	ZSEncoding = "sensorID:7,sparsePixelType:5"

	encodingKey = "CellIDEncoding"
)

// Hit is a space point read from a TrackerHit collection.
type Hit struct {
	SensorID    int
	Pos         [3]float64
	Cov         [6]float64
	ClusterSize int
}

// SensorData is the zero-suppressed readout of one sensor.
type SensorData struct {
	SensorID int
	Type     pixel.Type
	Pixels   []pixel.Pixel
}

func encodingOf(params lcio.Params, fallback string) string {
	if enc := params.Strings[encodingKey]; len(enc) > 0 && enc[0] != "" {
		return enc[0]
	}
	return fallback
}

func toFloat64[T float32 | float64](src [6]T) (dst [6]float64) {
	for i, v := range src {
		dst[i] = float64(v)
	}
	return dst
}

func fromFloat64[T float32 | float64](dst *[6]T, src [6]float64) {
	for i, v := range src {
		dst[i] = T(v)
	}
}

// HitSource decodes hits from the named TrackerHit collection. The sensor ID
// comes from the collection's cell ID encoding and the cluster size from the
// hit quality word.
type HitSource struct {
	Collection string
}

func (s HitSource) Hits(evt *lcio.Event) ([]Hit, error) {
	if !evt.Has(s.Collection) {
		return nil, errors.Wrapf(ErrCollectionNotFound, "hit collection %q", s.Collection)
	}
	coll, ok := evt.Get(s.Collection).(*lcio.TrackerHitContainer)
	if !ok {
		return nil, errors.Errorf("lcioio: collection %q is not a TrackerHit collection", s.Collection)
	}
	dec, err := NewCellID(encodingOf(coll.Params, HitEncoding))
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(coll.Hits))
	for _, h := range coll.Hits {
		id, err := dec.Get(h.CellID0, "sensorID")
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{
			SensorID:    id,
			Pos:         h.Pos,
			Cov:         toFloat64(h.Cov),
			ClusterSize: int(h.Quality & 0xffff),
		})
	}
	return hits, nil
}

// ClusterSource decodes the named TrackerData collection of sparse pixels.
type ClusterSource struct {
	Collection string
}

func (s ClusterSource) Sensors(evt *lcio.Event) ([]SensorData, error) {
	if !evt.Has(s.Collection) {
		return nil, errors.Wrapf(ErrCollectionNotFound, "zero-suppressed collection %q", s.Collection)
	}
	coll, ok := evt.Get(s.Collection).(*lcio.TrackerDataContainer)
	if !ok {
		return nil, errors.Errorf("lcioio: collection %q is not a TrackerData collection", s.Collection)
	}
	dec, err := NewCellID(encodingOf(coll.Params, ZSEncoding))
	if err != nil {
		return nil, err
	}

	sensors := make([]SensorData, 0, len(coll.Data))
	for _, d := range coll.Data {
		id, err := dec.Get(d.CellID0, "sensorID")
		if err != nil {
			return nil, err
		}
		typ, err := dec.Get(d.CellID0, "sparsePixelType")
		if err != nil {
			return nil, err
		}
		pixels, err := pixel.Decode(d.Charges, pixel.Type(typ))
		if err != nil {
			return nil, errors.Wrapf(err, "sensor %d", id)
		}
		sensors = append(sensors, SensorData{SensorID: id, Type: pixel.Type(typ), Pixels: pixels})
	}
	return sensors, nil
}

// Reader iterates over the events of one LCIO file.
type Reader struct {
	r     *lcio.Reader
	fname string
	evt   lcio.Event
}

func Open(fname string) (*Reader, error) {
	r, err := lcio.Open(fname)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return &Reader{r: r, fname: fname}, nil
}

func (r *Reader) Next() bool {
	if !r.r.Next() {
		return false
	}
	r.evt = r.r.Event()
	return true
}

// Event returns the event loaded by the last call to Next.
func (r *Reader) Event() *lcio.Event { return &r.evt }

// Err returns the first read error. The end of the file is not an error.
func (r *Reader) Err() error {
	err := r.r.Err()
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errors.Wrapf(err, "reading %q", r.fname)
}

func (r *Reader) Close() error { return r.r.Close() }

// Writer stores events in a new LCIO file.
type Writer struct {
	w   *lcio.Writer
	hit *CellID
	zs  *CellID

	HitCollection string
	ZSCollection  string
}

func Create(fname, hitCollection, zsCollection string) (*Writer, error) {
	hit, err := NewCellID(HitEncoding)
	if err != nil {
		return nil, err
	}
	zs, err := NewCellID(ZSEncoding)
	if err != nil {
		return nil, err
	}
	w, err := lcio.Create(fname)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return &Writer{w: w, hit: hit, zs: zs, HitCollection: hitCollection, ZSCollection: zsCollection}, nil
}

func (w *Writer) WriteRunHeader(run int, detector, description string) error {
	return w.w.WriteRunHeader(&lcio.RunHeader{
		RunNumber: int32(run),
		Detector:  detector,
		Descr:     description,
	})
}

// WriteEvent stores hits and sensor data as one event. A nil slice leaves the
// corresponding collection out.
func (w *Writer) WriteEvent(run, number int, hits []Hit, sensors []SensorData) error {
	evt := lcio.Event{
		RunNumber:   int32(run),
		EventNumber: int32(number),
		Detector:    "eutel",
	}

	if hits != nil {
		coll := &lcio.TrackerHitContainer{
			Params: lcio.Params{Strings: map[string][]string{encodingKey: {w.hit.Encoding()}}},
			Hits:   make([]lcio.TrackerHit, len(hits)),
		}
		for i, h := range hits {
			id, err := w.hit.Encode(map[string]int{"sensorID": h.SensorID})
			if err != nil {
				return err
			}
			th := &coll.Hits[i]
			th.CellID0 = id
			th.Pos = h.Pos
			fromFloat64(&th.Cov, h.Cov)
			th.Quality = int32(h.ClusterSize)
		}
		evt.Add(w.HitCollection, coll)
	}

	if sensors != nil {
		coll := &lcio.TrackerDataContainer{
			Params: lcio.Params{Strings: map[string][]string{encodingKey: {w.zs.Encoding()}}},
			Data:   make([]lcio.TrackerData, len(sensors)),
		}
		for i, s := range sensors {
			id, err := w.zs.Encode(map[string]int{"sensorID": s.SensorID, "sparsePixelType": int(s.Type)})
			if err != nil {
				return err
			}
			raw, err := pixel.Encode(s.Pixels, s.Type)
			if err != nil {
				return errors.Wrapf(err, "sensor %d", s.SensorID)
			}
			coll.Data[i].CellID0 = id
			coll.Data[i].Charges = raw
		}
		evt.Add(w.ZSCollection, coll)
	}

	return errors.Wrapf(w.w.WriteEvent(&evt), "writing event %d", number)
}

func (w *Writer) Close() error { return w.w.Close() }
