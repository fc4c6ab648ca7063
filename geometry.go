package friendly

import "math"

// overlapFactor widens the effective cell footprint when computing per-ring
// density so neighboring cells slightly overlap instead of leaving seams.
const overlapFactor = 1.15

// CellPlacement is one immutable cell placement produced by GenerateCells:
// a surface position, its outward unit normal, and the UV coordinate that
// selects the cell's sub-rectangle of the shared texture.
type CellPlacement struct {
	Position Vec3
	Normal   Vec3
	U, V     float64
}

// GenerateCells computes deterministic cell placements covering a sphere of
// the given radius. The polar range (0, π) is divided into rings equal bands;
// each band receives the larger of a density floor and the count needed to
// fill its circumference with cells of edge length cellSize. The two bands
// adjacent to the poles get a raised floor to prevent visible polar gaps.
//
// U is the normalized azimuth and V the normalized polar angle of each cell.
// The function is purely functional: identical inputs always produce an
// identical sequence. It runs both at engine start and on every resize.
func GenerateCells(radius, cellSize float64, rings, minPerRing int) []CellPlacement {
	if radius <= 0 || cellSize <= 0 || rings < 1 || minPerRing < 1 {
		return nil
	}

	out := make([]CellPlacement, 0, rings*minPerRing)
	for ring := 0; ring < rings; ring++ {
		// Band centers, so no ring sits exactly on a pole.
		v := (float64(ring) + 0.5) / float64(rings)
		phi := math.Pi * v

		sinPhi, cosPhi := math.Sincos(phi)
		ringRadius := sinPhi * radius
		height := cosPhi * radius

		count := int(2 * math.Pi * ringRadius / (cellSize * overlapFactor))
		floor := minPerRing
		if ring == 0 || ring == rings-1 {
			// Polar bands are short on circumference but must still read
			// as a closed surface from any viewing angle.
			floor = minPerRing * 2
		}
		if count < floor {
			count = floor
		}

		for i := 0; i < count; i++ {
			u := (float64(i) + 0.5) / float64(count)
			theta := 2 * math.Pi * u
			sinT, cosT := math.Sincos(theta)
			pos := Vec3{
				X: sinT * ringRadius,
				Y: height,
				Z: cosT * ringRadius,
			}
			out = append(out, CellPlacement{
				Position: pos,
				Normal:   pos.Normalize(),
				U:        u,
				V:        v,
			})
		}
	}
	return out
}
