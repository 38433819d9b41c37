package equalize

import "math"

// Tile is one rectangular region of the grid with its local histogram and
// the mapping curve derived from it.
type Tile struct {
	Hist  Histogram
	Curve MappingCurve
	Area  int
}

// TileGrid partitions an image into Cols x Rows tiles of TileSize pixels.
// Tiles on the last row and column are truncated at the image boundary.
// Tiles are stored flat, row-major.
type TileGrid struct {
	Tiles    []Tile
	Cols     int
	Rows     int
	TileSize int
	Width    int
	Height   int
}

// BuildTileGrid accumulates one histogram per tile from a V plane of
// width*height levels. Each tile's histogram sums to its exact pixel area.
func BuildTileGrid(values []uint8, width, height, tileSize int) *TileGrid {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	cols := (width + tileSize - 1) / tileSize
	rows := (height + tileSize - 1) / tileSize

	g := &TileGrid{
		Tiles:    make([]Tile, cols*rows),
		Cols:     cols,
		Rows:     rows,
		TileSize: tileSize,
		Width:    width,
		Height:   height,
	}

	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			tw := min(tileSize, width-i*tileSize)
			th := min(tileSize, height-j*tileSize)
			g.Tiles[j*cols+i].Area = tw * th
		}
	}

	for y, p := 0, 0; y < height; y++ {
		row := (y / tileSize) * cols
		for x := 0; x < width; x, p = x+1, p+1 {
			g.Tiles[row+x/tileSize].Hist[values[p]]++
		}
	}

	return g
}

// At returns the tile in column i, row j.
func (g *TileGrid) At(i, j int) *Tile {
	return &g.Tiles[j*g.Cols+i]
}

// ClipLimit returns the per-bin cap for a tile of the given area:
// max(1, floor(clipLimit*area/256)). It never exceeds area, so an infinite
// clip limit disables clipping.
func ClipLimit(clipLimit float64, area int) int {
	limit := math.Floor(clipLimit * float64(area) / Levels)
	if math.IsNaN(limit) || limit < 1 {
		return 1
	}
	if limit > float64(area) {
		return max(area, 1)
	}
	return int(limit)
}

// ClipHistogram truncates every bin above limit and hands the removed mass
// back uniformly: each bin gets floor(excess/256) and the first
// excess mod 256 bins one more. It is a single pass; bins pushed back over
// the limit by redistribution are not clipped again. The total is preserved.
// It returns the redistributed excess.
func ClipHistogram(h *Histogram, limit int) int {
	excess := 0
	for k := range h {
		if h[k] > limit {
			excess += h[k] - limit
			h[k] = limit
		}
	}

	addAll := excess / Levels
	rem := excess % Levels
	for k := range h {
		h[k] += addAll
	}
	for k := 0; k < rem; k++ {
		h[k]++
	}
	return excess
}

// TileCurve maps a (clipped) tile histogram to levels:
// map[k] = round(c[k]*255 / max(1, area)) with c the cumulative sum.
// There is no minimum subtraction at tile scale.
func TileCurve(h *Histogram, area int) MappingCurve {
	area = max(1, area)
	var curve MappingCurve
	c := 0
	for k := range h {
		c += h[k]
		curve[k] = roundU8(float64(c*255) / float64(area))
	}
	return curve
}

// Equalize clips every tile histogram and derives its mapping curve.
func (g *TileGrid) Equalize(clipLimit float64) {
	for idx := range g.Tiles {
		t := &g.Tiles[idx]
		ClipHistogram(&t.Hist, ClipLimit(clipLimit, t.Area))
		t.Curve = TileCurve(&t.Hist, t.Area)
	}
}

// Map returns the level for input v at pixel (x, y) by bilinearly blending
// the curves of the tile containing the pixel and its right, lower and
// lower-right neighbours. Fractions are measured from tile origins, and the
// neighbour index is clamped to the last row/column, so border pixels reuse
// the edge tile instead of extrapolating.
func (g *TileGrid) Map(x, y int, v uint8) uint8 {
	ts := float64(g.TileSize)

	xf := float64(x) / ts
	i0 := int(math.Floor(xf))
	i1 := min(i0+1, g.Cols-1)
	u := xf - float64(i0)

	yf := float64(y) / ts
	j0 := int(math.Floor(yf))
	j1 := min(j0+1, g.Rows-1)
	w := yf - float64(j0)

	m00 := float64(g.Tiles[j0*g.Cols+i0].Curve[v])
	m10 := float64(g.Tiles[j0*g.Cols+i1].Curve[v])
	m01 := float64(g.Tiles[j1*g.Cols+i0].Curve[v])
	m11 := float64(g.Tiles[j1*g.Cols+i1].Curve[v])

	return roundU8((1-u)*(1-w)*m00 + u*(1-w)*m10 + (1-u)*w*m01 + u*w*m11)
}
