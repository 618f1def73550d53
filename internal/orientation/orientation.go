// Package orientation enumerates the 24 proper rotations of the integer
// lattice (the rotation group of the cube) and applies them to points.
//
// The table is built once at package initialisation: every signed axis
// permutation is generated and only those with determinant +1 are kept,
// which removes the 24 mirror images. Rotation 0 is the identity.
package orientation

import (
	"fmt"

	"github.com/OCAP2/beaconmap/pkg/core"
	"gonum.org/v1/gonum/mat"
)

// Count is the number of proper lattice rotations.
const Count = 24

// Matrix is an integer rotation matrix; row i gives output axis i.
type Matrix [3][3]int

var (
	matrices [Count]Matrix
	lookup   map[Matrix]core.Rotation
)

func init() {
	table := buildTable()
	if len(table) != Count {
		panic(fmt.Sprintf("orientation: expected %d rotations, built %d", Count, len(table)))
	}
	lookup = make(map[Matrix]core.Rotation, Count)
	for i, m := range table {
		matrices[i] = m
		lookup[m] = core.Rotation(i)
	}
}

// axis permutations, identity first
var permutations = [6][3]int{
	{0, 1, 2},
	{1, 2, 0},
	{2, 0, 1},
	{0, 2, 1},
	{1, 0, 2},
	{2, 1, 0},
}

func buildTable() []Matrix {
	out := make([]Matrix, 0, Count)
	for _, perm := range permutations {
		for signs := 0; signs < 8; signs++ {
			var m Matrix
			for row := 0; row < 3; row++ {
				sign := 1
				if signs&(1<<row) != 0 {
					sign = -1
				}
				m[row][perm[row]] = sign
			}
			if mat.Det(m.dense()) > 0 {
				out = append(out, m)
			}
		}
	}
	return out
}

func (m Matrix) dense() *mat.Dense {
	data := make([]float64, 0, 9)
	for _, row := range m {
		for _, v := range row {
			data = append(data, float64(v))
		}
	}
	return mat.NewDense(3, 3, data)
}

// Transpose returns mᵀ, which is also the inverse of a rotation matrix.
func (m Matrix) Transpose() Matrix {
	var t Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

// Mul returns the matrix product m·o.
func (m Matrix) Mul(o Matrix) Matrix {
	var r Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

// All returns the 24 rotations in table order. Each call returns a fresh slice.
func All() []core.Rotation {
	out := make([]core.Rotation, Count)
	for i := range out {
		out[i] = core.Rotation(i)
	}
	return out
}

// Valid reports whether r labels a rotation in the table.
func Valid(r core.Rotation) bool {
	return int(r) < Count
}

// MatrixOf returns the matrix for r. It panics on an invalid label.
func MatrixOf(r core.Rotation) Matrix {
	return matrices[r]
}

// Lookup returns the label of m, if m is a proper lattice rotation.
func Lookup(m Matrix) (core.Rotation, bool) {
	r, ok := lookup[m]
	return r, ok
}

// Inverse returns the rotation that undoes r.
func Inverse(r core.Rotation) core.Rotation {
	return lookup[matrices[r].Transpose()]
}

// Compose returns the rotation equivalent to applying b and then a.
func Compose(a, b core.Rotation) core.Rotation {
	return lookup[matrices[a].Mul(matrices[b])]
}

// ApplyPoint rotates a single point.
func ApplyPoint(r core.Rotation, p core.Point) core.Point {
	m := &matrices[r]
	return core.Point{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z,
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z,
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z,
	}
}

// Apply rotates every point. The result has the same length and order as
// pts and, since rotations are bijections, no new duplicates.
func Apply(r core.Rotation, pts []core.Point) []core.Point {
	out := make([]core.Point, len(pts))
	for i, p := range pts {
		out[i] = ApplyPoint(r, p)
	}
	return out
}

// Oriented returns pts under each of the 24 rotations, indexed by label.
func Oriented(pts []core.Point) [][]core.Point {
	out := make([][]core.Point, Count)
	for i := range out {
		out[i] = Apply(core.Rotation(i), pts)
	}
	return out
}
