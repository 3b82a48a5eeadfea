package tether

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type aabb struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func aabbFromCenter(center, halfExtents mgl32.Vec3) aabb {
	return aabb{Min: center.Sub(halfExtents), Max: center.Add(halfExtents)}
}

func (a aabb) overlaps(b aabb) bool {
	return a.Min.X() <= b.Max.X() && a.Max.X() >= b.Min.X() &&
		a.Min.Y() <= b.Max.Y() && a.Max.Y() >= b.Min.Y() &&
		a.Min.Z() <= b.Max.Z() && a.Max.Z() >= b.Min.Z()
}

// spatialHash is the broadphase index: collider handles bucketed into
// uniform grid cells keyed by a prime-mixed hash.
type spatialHash struct {
	cellSize float32
	cells    map[uint64][]Handle
}

func newSpatialHash(cellSize float32) *spatialHash {
	return &spatialHash{
		cellSize: cellSize,
		cells:    make(map[uint64][]Handle),
	}
}

func (g *spatialHash) clear() {
	for k := range g.cells {
		delete(g.cells, k)
	}
}

func (g *spatialHash) insert(h Handle, box aabb) {
	minX, maxX := g.cellIndex(box.Min.X()), g.cellIndex(box.Max.X())
	minY, maxY := g.cellIndex(box.Min.Y()), g.cellIndex(box.Max.Y())
	minZ, maxZ := g.cellIndex(box.Min.Z()), g.cellIndex(box.Max.Z())

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				key := g.hashKey(x, y, z)
				g.cells[key] = append(g.cells[key], h)
			}
		}
	}
}

// queryAABB returns broadphase candidates, deduplicated, in insertion
// order within each cell scan.
func (g *spatialHash) queryAABB(box aabb) []Handle {
	minX, maxX := g.cellIndex(box.Min.X()), g.cellIndex(box.Max.X())
	minY, maxY := g.cellIndex(box.Min.Y()), g.cellIndex(box.Max.Y())
	minZ, maxZ := g.cellIndex(box.Min.Z()), g.cellIndex(box.Max.Z())

	unique := make(map[Handle]struct{})
	var results []Handle

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				key := g.hashKey(x, y, z)
				for _, h := range g.cells[key] {
					if _, ok := unique[h]; !ok {
						unique[h] = struct{}{}
						results = append(results, h)
					}
				}
			}
		}
	}
	return results
}

func (g *spatialHash) cellIndex(pos float32) int {
	return int(math.Floor(float64(pos / g.cellSize)))
}

// Simple hash function for 3D coordinates
func (g *spatialHash) hashKey(x, y, z int) uint64 {
	// large primes for mixing
	const p1 = 73856093
	const p2 = 19349663
	const p3 = 83492791
	return uint64(x*p1 ^ y*p2 ^ z*p3)
}
