package lcioio

import (
	"fmt"
	"strconv"
	"strings"
)

type field struct {
	name   string
	offset uint
	width  uint
	signed bool
}

// CellID packs named bit fields into the 32 bit cell identifier of a hit or
// data word, following an LCIO encoding string such as
// "sensorID:7,sparsePixelType:5". A field may give an explicit offset as
// "name:offset:width"; a negative width marks a signed field.
type CellID struct {
	encoding string
	fields   []field
}

func NewCellID(encoding string) (*CellID, error) {
	c := &CellID{encoding: encoding}
	var offset uint
	for _, part := range strings.Split(encoding, ",") {
		tokens := strings.Split(strings.TrimSpace(part), ":")
		f := field{name: tokens[0]}
		var widthStr string
		switch len(tokens) {
		case 2:
			widthStr = tokens[1]
		case 3:
			o, err := strconv.ParseUint(tokens[1], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("lcioio: bad offset in cell ID field %q: %w", part, err)
			}
			offset = uint(o)
			widthStr = tokens[2]
		default:
			return nil, fmt.Errorf("lcioio: bad cell ID field %q", part)
		}
		w, err := strconv.Atoi(widthStr)
		if err != nil || w == 0 {
			return nil, fmt.Errorf("lcioio: bad width in cell ID field %q", part)
		}
		if w < 0 {
			f.signed = true
			w = -w
		}
		f.offset, f.width = offset, uint(w)
		offset += f.width
		if offset > 32 {
			return nil, fmt.Errorf("lcioio: cell ID encoding %q exceeds 32 bits", encoding)
		}
		c.fields = append(c.fields, f)
	}
	return c, nil
}

func (c *CellID) Encoding() string { return c.encoding }

func (c *CellID) lookup(name string) (field, bool) {
	for _, f := range c.fields {
		if f.name == name {
			return f, true
		}
	}
	return field{}, false
}

// Get extracts the named field from id.
func (c *CellID) Get(id int32, name string) (int, error) {
	f, ok := c.lookup(name)
	if !ok {
		return 0, fmt.Errorf("lcioio: no field %q in cell ID encoding %q", name, c.encoding)
	}
	mask := uint32(1)<<f.width - 1
	v := (uint32(id) >> f.offset) & mask
	if f.signed && v&(1<<(f.width-1)) != 0 {
		return int(v) - int(1)<<f.width, nil
	}
	return int(v), nil
}

// Encode packs values by field name. Missing fields are zero.
func (c *CellID) Encode(values map[string]int) (int32, error) {
	var id uint32
	for name, v := range values {
		f, ok := c.lookup(name)
		if !ok {
			return 0, fmt.Errorf("lcioio: no field %q in cell ID encoding %q", name, c.encoding)
		}
		lo, hi := 0, 1<<f.width-1
		if f.signed {
			lo, hi = -(1 << (f.width - 1)), 1<<(f.width-1)-1
		}
		if v < lo || v > hi {
			return 0, fmt.Errorf("lcioio: value %d of field %q does not fit in %d bits", v, name, f.width)
		}
		mask := uint32(1)<<f.width - 1
		id |= (uint32(v) & mask) << f.offset
	}
	return int32(id), nil
}
