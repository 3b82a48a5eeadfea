package tether

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// HeightfieldGrid is an immutable terrain height grid: rows x cols cells,
// (rows+1)*(cols+1) height samples, and a per-axis world scale. The same
// grid feeds both the engine backend and the debug wireframe, so the
// triangulation of BuildHeightfieldMesh must stay identical for both.
type HeightfieldGrid struct {
	rows    int
	cols    int
	heights []float32
	scale   mgl32.Vec3
}

// NewHeightfieldGrid validates and copies the inputs. heights must hold
// exactly (rows+1)*(cols+1) samples.
func NewHeightfieldGrid(rows, cols int, heights []float32, scale mgl32.Vec3) (*HeightfieldGrid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("heightfield: grid must be at least 1x1, got %dx%d", rows, cols)
	}
	want := (rows + 1) * (cols + 1)
	if len(heights) != want {
		return nil, fmt.Errorf("heightfield: need %d height samples for %dx%d grid, got %d", want, rows, cols, len(heights))
	}
	h := make([]float32, want)
	copy(h, heights)
	return &HeightfieldGrid{rows: rows, cols: cols, heights: h, scale: scale}, nil
}

func (g *HeightfieldGrid) Rows() int         { return g.rows }
func (g *HeightfieldGrid) Cols() int         { return g.cols }
func (g *HeightfieldGrid) Scale() mgl32.Vec3 { return g.scale }

// Heights returns a copy of the sample buffer.
func (g *HeightfieldGrid) Heights() []float32 {
	h := make([]float32, len(g.heights))
	copy(h, g.heights)
	return h
}

// BuildHeightfieldMesh triangulates a heightfield grid into a vertex and
// index buffer. The layout is fixed: vertex (i,j) with i in [0,rows] and
// j in [0,cols] lands at slot i*(cols+1)+j with
//
//	x = (j/rows - 0.5) * scale.x
//	y = heights[j*(rows+1)+i] * scale.y
//	z = (i/cols - 0.5) * scale.z
//
// and every grid cell emits two triangles (i1,i3,i2), (i3,i4,i2) where i1
// is the cell's (i,j) corner, i2 its (i,j+1), i3 its (i+1,j) and i4 its
// (i+1,j+1) corner. The function is pure: identical inputs produce
// bit-identical buffers.
func BuildHeightfieldMesh(g *HeightfieldGrid) ([]mgl32.Vec3, []uint32) {
	if g == nil {
		return nil, nil
	}
	rows := g.rows
	cols := g.cols
	scale := g.scale

	vertices := make([]mgl32.Vec3, 0, (rows+1)*(cols+1))
	for i := 0; i <= rows; i++ {
		for j := 0; j <= cols; j++ {
			x := (float32(j)/float32(rows) - 0.5) * scale.X()
			y := g.heights[j*(rows+1)+i] * scale.Y()
			z := (float32(i)/float32(cols) - 0.5) * scale.Z()
			vertices = append(vertices, mgl32.Vec3{x, y, z})
		}
	}

	indices := make([]uint32, 0, rows*cols*6)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			i1 := uint32(i*(cols+1) + j)
			i2 := uint32(i*(cols+1) + j + 1)
			i3 := uint32((i+1)*(cols+1) + j)
			i4 := uint32((i+1)*(cols+1) + j + 1)
			indices = append(indices, i1, i3, i2, i3, i4, i2)
		}
	}

	return vertices, indices
}

// heightBounds reports the min and max sample values, used to bound a
// heightfield collider for the broadphase.
func (g *HeightfieldGrid) heightBounds() (min, max float32) {
	min, max = g.heights[0], g.heights[0]
	for _, h := range g.heights[1:] {
		if h < min {
			min = h
		}
		if h > max {
			max = h
		}
	}
	return min, max
}
