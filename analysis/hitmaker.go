package analysis

import (
	"math"

	"github.com/pkg/errors"

	"github.com/decibelcooper/eutel/geometry"
	"github.com/decibelcooper/eutel/lcioio"
	"github.com/decibelcooper/eutel/pixel"
	"github.com/decibelcooper/eutel/trackfit"
	"github.com/decibelcooper/eutel/tracking"
)

// HitMaker turns stored hits or sparse pixel data into tracking hits with a
// plane index and a resolution from the cluster size table.
type HitMaker struct {
	Geo        geometry.Provider
	Resolution trackfit.Resolution
	Tolerance  float64
}

// Make prefers the stored hits of evt and clusters the pixel data only when
// the event carries no hits.
func (m HitMaker) Make(evt Event) ([]tracking.Hit, error) {
	if evt.Hits != nil {
		return m.FromHits(evt.Hits)
	}
	return m.FromSensors(evt.Sensors)
}

// FromHits assigns planes by sensor ID, falling back to the z position.
func (m HitMaker) FromHits(in []lcioio.Hit) ([]tracking.Hit, error) {
	hits := make([]tracking.Hit, 0, len(in))
	for _, h := range in {
		res := m.Resolution.For(h.ClusterSize)
		hits = append(hits, tracking.Hit{
			X: h.Pos[0], Y: h.Pos[1], Z: h.Pos[2],
			Ex: res, Ey: res,
			ClusterSize: h.ClusterSize,
		})
		plane, ok := m.Geo.PlaneOf(h.SensorID)
		if ok {
			hits[len(hits)-1].Plane = plane
			continue
		}
		// unknown sensor, fall back to the z position
		if err := tracking.AssignPlanes(hits[len(hits)-1:], m.Geo, m.Tolerance); err != nil {
			return nil, errors.Wrapf(err, "sensor %d", h.SensorID)
		}
	}
	return hits, nil
}

// FromSensors clusters the pixels of every sensor and places one hit at the
// charge centre of each cluster. Clusters without charge are dropped.
func (m HitMaker) FromSensors(sensors []lcioio.SensorData) ([]tracking.Hit, error) {
	var hits []tracking.Hit
	for _, s := range sensors {
		plane, ok := m.Geo.PlaneOf(s.SensorID)
		if !ok {
			return nil, errors.Wrapf(tracking.ErrUnassociatedHit, "sensor %d", s.SensorID)
		}
		geo := m.Geo.Plane(plane)
		for _, c := range pixel.Clusterize(s.SensorID, s.Pixels) {
			h, ok := m.clusterHit(geo, c)
			if !ok {
				continue
			}
			h.Plane = plane
			hits = append(hits, h)
		}
	}
	return hits, nil
}

func (m HitMaker) clusterHit(geo geometry.Plane, c pixel.Cluster[pixel.Pixel]) (tracking.Hit, bool) {
	col, row := c.CenterOfGravity()
	if math.IsNaN(col) {
		return tracking.Hit{}, false
	}
	u, v := geo.PixelCenter(col, row)
	if info, ok := c.GeomInfo(); ok {
		u, v = info.CenterX(), info.CenterY()
	}
	x, y, z := geo.LocalToGlobal(u, v)
	res := m.Resolution.For(c.Len())
	return tracking.Hit{X: x, Y: y, Z: z, Ex: res, Ey: res, ClusterSize: c.Len()}, true
}
