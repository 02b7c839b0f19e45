// Package topology implements the ten grid shapes a Field can be laid out
// on. Each shape is expressed as one method, Normalize, on a tagged variant
// (spec.md §9: "shape-polymorphic Topology... express as a tagged variant
// with a single method normalize; no inheritance required"). The fold
// tables for the sphere and cone variants are transcribed bit-for-bit from
// original_source/src/Topology.cpp (see DESIGN.md) per spec.md's Open
// Question #2.
package topology

import "fmt"

// Kind names one of the ten supported grid topologies.
type Kind int

const (
	Torus Kind = iota
	CylinderX
	CylinderY
	Plane
	SphereLeft
	SphereRight
	ConeLeftTop
	ConeRightTop
	ConeLeftBottom
	ConeRightBottom
)

func (k Kind) String() string {
	switch k {
	case Torus:
		return "torus"
	case CylinderX:
		return "cylinder_x"
	case CylinderY:
		return "cylinder_y"
	case Plane:
		return "plane"
	case SphereLeft:
		return "sphere_left"
	case SphereRight:
		return "sphere_right"
	case ConeLeftTop:
		return "cone_left_top"
	case ConeRightTop:
		return "cone_right_top"
	case ConeLeftBottom:
		return "cone_left_bottom"
	case ConeRightBottom:
		return "cone_right_bottom"
	default:
		return fmt.Sprintf("topology.Kind(%d)", int(k))
	}
}

// ParseKind parses the lowercase name String returns (e.g. "sphere_left")
// back into a Kind, for config files that name a topology by string.
func ParseKind(name string) (Kind, error) {
	for k := Torus; k <= ConeRightBottom; k++ {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("topology: unknown kind %q", name)
}

// requiresSquare reports whether a kind can only be constructed on a
// width == height grid.
func (k Kind) requiresSquare() bool {
	return k >= SphereLeft
}

// Topology is the tagged variant: one kind, one dimension pair, one method.
type Topology struct {
	kind          Kind
	width, height int
}

// New constructs a Topology of the given kind for a width x height grid.
// Sphere and cone kinds require width == height.
func New(kind Kind, width, height int) (*Topology, error) {
	if kind < Torus || kind > ConeRightBottom {
		return nil, fmt.Errorf("topology: unknown kind %d", int(kind))
	}
	if kind.requiresSquare() && width != height {
		return nil, fmt.Errorf("topology: %s requires a square grid, got %dx%d", kind, width, height)
	}
	return &Topology{kind: kind, width: width, height: height}, nil
}

// Kind returns the topology's shape.
func (t *Topology) Kind() Kind {
	return t.kind
}

// Width returns the grid width.
func (t *Topology) Width() int {
	return t.width
}

// Height returns the grid height.
func (t *Topology) Height() int {
	return t.height
}

// Normalize maps (x, y, rotation) to a canonical in-range cell coordinate
// and possibly-folded rotation, or reports ok=false if the topology rejects
// the coordinate (an off-grid reference under PLANE, a cylinder's
// unwrapped axis, or a point outside a cone's 2n x 2n window).
func (t *Topology) Normalize(x, y, rotation int) (nx, ny, nrotation int, ok bool) {
	switch t.kind {
	case Torus:
		return torusNormalize(x, y, rotation, t.width, t.height)
	case CylinderX:
		return cylinderXNormalize(x, y, rotation, t.width, t.height)
	case CylinderY:
		return cylinderYNormalize(x, y, rotation, t.width, t.height)
	case Plane:
		return planeNormalize(x, y, rotation, t.width, t.height)
	case SphereLeft:
		return sphereLeftNormalize(x, y, rotation, t.width)
	case SphereRight:
		return sphereRightNormalize(x, y, rotation, t.width)
	case ConeLeftTop:
		return coneLeftTopNormalize(x, y, rotation, t.width)
	case ConeRightTop:
		return coneRightTopNormalize(x, y, rotation, t.width)
	case ConeLeftBottom:
		return coneLeftBottomNormalize(x, y, rotation, t.width)
	case ConeRightBottom:
		return coneRightBottomNormalize(x, y, rotation, t.width)
	default:
		return 0, 0, 0, false
	}
}

func mod(a, m int) int {
	a %= m
	if a < 0 {
		a += m
	}
	return a
}

func foldRotation(rotation, delta int) int {
	if rotation != 0 {
		rotation += delta
		rotation %= 8
	}
	return rotation
}

func torusNormalize(x, y, rotation, w, h int) (int, int, int, bool) {
	return mod(x, w), mod(y, h), rotation, true
}

func cylinderXNormalize(x, y, rotation, w, h int) (int, int, int, bool) {
	x = mod(x, w)
	if y < 0 || y >= h {
		return x, y, rotation, false
	}
	return x, y, rotation, true
}

func cylinderYNormalize(x, y, rotation, w, h int) (int, int, int, bool) {
	y = mod(y, h)
	if x < 0 || x >= w {
		return x, y, rotation, false
	}
	return x, y, rotation, true
}

func planeNormalize(x, y, rotation, w, h int) (int, int, int, bool) {
	if x < 0 || x >= w || y < 0 || y >= h {
		return x, y, rotation, false
	}
	return x, y, rotation, true
}

// sphereLeftNormalize folds a 2n x 2n wrapped coordinate onto an n x n
// sphere, swapping x/y and reflecting in the three non-canonical quadrants.
func sphereLeftNormalize(x, y, rotation, n int) (int, int, int, bool) {
	x = mod(x, 2*n)
	y = mod(y, 2*n)

	if x < n {
		if y >= n {
			x, y = y, x
			x = 2*n - x - 1
			rotation = foldRotation(rotation, 6)
		}
	} else {
		if y < n {
			x, y = y, x
			y = 2*n - y - 1
			rotation = foldRotation(rotation, 2)
		} else {
			x = 2*n - x - 1
			y = 2*n - y - 1
			rotation = foldRotation(rotation, 4)
		}
	}
	return x, y, rotation, true
}

func sphereRightNormalize(x, y, rotation, n int) (int, int, int, bool) {
	x = mod(x, 2*n)
	y = mod(y, 2*n)

	if x < n {
		if y >= n {
			x, y = y, x
			x = x - n
			y = n - y - 1
			rotation = foldRotation(rotation, 2)
		}
	} else {
		if y < n {
			x, y = y, x
			x = n - x - 1
			y = y - n
			rotation = foldRotation(rotation, 6)
		} else {
			x = 2*n - x - 1
			y = 2*n - y - 1
			rotation = foldRotation(rotation, 4)
		}
	}
	return x, y, rotation, true
}

func coneLeftTopNormalize(x, y, rotation, n int) (int, int, int, bool) {
	if x < -n || x >= n || y < -n || y >= n {
		return x, y, rotation, false
	}
	if x < 0 {
		if y < 0 {
			x = -x - 1
			y = -y - 1
			rotation = foldRotation(rotation, 4)
		} else {
			x, y = y, x
			y = -y - 1
			rotation = foldRotation(rotation, 2)
		}
	} else if y < 0 {
		x, y = y, x
		x = -x - 1
		rotation = foldRotation(rotation, 6)
	}
	return x, y, rotation, true
}

func coneRightTopNormalize(x, y, rotation, n int) (int, int, int, bool) {
	if x < 0 || x >= 2*n || y < -n || y >= n {
		return x, y, rotation, false
	}
	if x >= n {
		if y < 0 {
			x = 2*n - x - 1
			y = -y - 1
			rotation = foldRotation(rotation, 4)
		} else {
			x, y = y, x
			x = n - x - 1
			y = y - n
			rotation = foldRotation(rotation, 6)
		}
	} else if y < 0 {
		x, y = y, x
		x = x + n
		y = n - y - 1
		rotation = foldRotation(rotation, 2)
	}
	return x, y, rotation, true
}

func coneLeftBottomNormalize(x, y, rotation, n int) (int, int, int, bool) {
	if x < -n || x >= n || y < 0 || y >= 2*n {
		return x, y, rotation, false
	}
	if x < 0 {
		if y >= n {
			x = -x - 1
			y = 2*n - y - 1
			rotation = foldRotation(rotation, 4)
		} else {
			x, y = y, x
			x = n - x - 1
			y = y + n
			rotation = foldRotation(rotation, 6)
		}
	} else if y >= n {
		x, y = y, x
		x = x - n
		y = n - y - 1
		rotation = foldRotation(rotation, 2)
	}
	return x, y, rotation, true
}

func coneRightBottomNormalize(x, y, rotation, n int) (int, int, int, bool) {
	if x < 0 || x >= 2*n || y < 0 || y >= 2*n {
		return x, y, rotation, false
	}
	if x < n {
		if y >= n {
			x, y = y, x
			x = 2*n - x - 1
			rotation = foldRotation(rotation, 6)
		}
	} else {
		if y < n {
			x, y = y, x
			y = 2*n - y - 1
			rotation = foldRotation(rotation, 2)
		} else {
			x = 2*n - x - 1
			y = 2*n - y - 1
			rotation = foldRotation(rotation, 4)
		}
	}
	return x, y, rotation, true
}
