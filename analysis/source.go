package analysis

import (
	"io"

	"github.com/pkg/errors"

	"github.com/decibelcooper/eutel/lcioio"
)

// Source delivers events in input order. Next returns io.EOF after the last
// event. An error wrapping lcioio.ErrCollectionNotFound skips one event;
// any other error ends the run.
type Source interface {
	Next() (Event, error)
}

// SliceSource replays events held in memory.
type SliceSource struct {
	Events []Event
	i      int
}

func (s *SliceSource) Next() (Event, error) {
	if s.i >= len(s.Events) {
		return Event{}, io.EOF
	}
	evt := s.Events[s.i]
	s.i++
	return evt, nil
}

// LCIOSource reads events from LCIO files one after the other.
type LCIOSource struct {
	files []string
	r     *lcioio.Reader
	hits  lcioio.HitSource
	zs    lcioio.ClusterSource
}

func NewLCIOSource(files []string, hitCollection, zsCollection string) *LCIOSource {
	return &LCIOSource{
		files: append([]string(nil), files...),
		hits:  lcioio.HitSource{Collection: hitCollection},
		zs:    lcioio.ClusterSource{Collection: zsCollection},
	}
}

func (s *LCIOSource) Next() (Event, error) {
	for {
		if s.r == nil {
			if len(s.files) == 0 {
				return Event{}, io.EOF
			}
			r, err := lcioio.Open(s.files[0])
			if err != nil {
				return Event{}, err
			}
			s.r, s.files = r, s.files[1:]
		}
		if s.r.Next() {
			break
		}
		err := s.r.Err()
		s.r.Close()
		s.r = nil
		if err != nil {
			return Event{}, err
		}
	}

	lcevt := s.r.Event()
	evt := Event{Run: int(lcevt.RunNumber), Number: int(lcevt.EventNumber)}

	hits, err := s.hits.Hits(lcevt)
	if err != nil && !errors.Is(err, lcioio.ErrCollectionNotFound) {
		return evt, err
	}
	evt.Hits = hits
	sensors, err := s.zs.Sensors(lcevt)
	if err != nil && !errors.Is(err, lcioio.ErrCollectionNotFound) {
		return evt, err
	}
	evt.Sensors = sensors

	if evt.Hits == nil && evt.Sensors == nil {
		return evt, errors.Wrapf(lcioio.ErrCollectionNotFound, "event %d has neither hits nor pixel data", evt.Number)
	}
	return evt, nil
}

func (s *LCIOSource) Close() error {
	if s.r == nil {
		return nil
	}
	err := s.r.Close()
	s.r = nil
	return err
}
