package model

import (
	"image"
)

// RegionModel holds the last detected regions in preview-frame coordinates
// and the user's chosen region. Zero value is usable; updates occur on the
// UI thread tick.
type RegionModel struct {
	rects    []image.Rectangle
	ids      []string
	selected string
}

func NewRegionModel() *RegionModel { return &RegionModel{} }

// SetRegions replaces the region list. ids and rects are index aligned;
// extra entries in the longer slice are ignored.
func (m *RegionModel) SetRegions(ids []string, rects []image.Rectangle) {
	if m == nil {
		return
	}
	n := min(len(ids), len(rects))
	m.ids = append(m.ids[:0], ids[:n]...)
	m.rects = append(m.rects[:0], rects[:n]...)
}

// Len is the number of known regions.
func (m *RegionModel) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ids)
}

// Rects returns the region rectangles and whether each is the active one.
func (m *RegionModel) Rects() ([]image.Rectangle, []bool) {
	if m == nil {
		return nil, nil
	}
	active := m.Active()
	sel := make([]bool, len(m.ids))
	for i, id := range m.ids {
		sel[i] = id == active
	}
	return append([]image.Rectangle(nil), m.rects...), sel
}

// Selected is the explicitly chosen region ID (may be empty).
func (m *RegionModel) Selected() string {
	if m == nil {
		return ""
	}
	return m.selected
}

// Active is the region a pass would use: the selected one when still
// present, else the first.
func (m *RegionModel) Active() string {
	if m == nil || len(m.ids) == 0 {
		return ""
	}
	for _, id := range m.ids {
		if id == m.selected {
			return id
		}
	}
	return m.ids[0]
}

// Next selects the region after the active one, wrapping around, and
// returns its ID. It returns "" when nothing is detected.
func (m *RegionModel) Next() string {
	if m == nil || len(m.ids) == 0 {
		return ""
	}
	active := m.Active()
	for i, id := range m.ids {
		if id == active {
			m.selected = m.ids[(i+1)%len(m.ids)]
			return m.selected
		}
	}
	m.selected = m.ids[0]
	return m.selected
}

// Clear forgets regions and the selection.
func (m *RegionModel) Clear() {
	if m == nil {
		return
	}
	m.ids, m.rects, m.selected = nil, nil, ""
}
