package scenegraph

import "math"

// Shape is implemented by every concrete shape resource (spec §3): it
// must support a ray-intersection predicate in its own local coordinate
// frame, used by hit testing (spec §4.5).
type Shape interface {
	Resource
	// Intersect returns the distance along the ray (originX,Y,Z)+t*(dirX,Y,Z)
	// to the shape's surface, and whether it hit at all. The ray is
	// already expressed in the shape's local coordinate frame.
	Intersect(originX, originY, originZ, dirX, dirY, dirZ float32) (distance float32, hit bool)
}

// CircleShape is a disc of the given radius centered on the local origin,
// lying in the local Z=0 plane.
type CircleShape struct {
	Radius float32
}

func (s *CircleShape) Kind() Kind { return KindShape }

func (s *CircleShape) Intersect(ox, oy, oz, dx, dy, dz float32) (float32, bool) {
	if dz == 0 {
		return 0, false
	}
	t := -oz / dz
	if t < 0 {
		return 0, false
	}
	x := ox + t*dx
	y := oy + t*dy
	if x*x+y*y > s.Radius*s.Radius {
		return 0, false
	}
	return t, true
}

// RectangleShape is an axis-aligned rectangle centered on the local
// origin, lying in the local Z=0 plane.
type RectangleShape struct {
	Width, Height float32
}

func (s *RectangleShape) Kind() Kind { return KindShape }

func (s *RectangleShape) Intersect(ox, oy, oz, dx, dy, dz float32) (float32, bool) {
	if dz == 0 {
		return 0, false
	}
	t := -oz / dz
	if t < 0 {
		return 0, false
	}
	x := ox + t*dx
	y := oy + t*dy
	hw, hh := s.Width/2, s.Height/2
	if x < -hw || x > hw || y < -hh || y > hh {
		return 0, false
	}
	return t, true
}

// RoundedRectangleShape is a rectangle with circular corner insets of the
// given radius, lying in the local Z=0 plane.
type RoundedRectangleShape struct {
	Width, Height, CornerRadius float32
}

func (s *RoundedRectangleShape) Kind() Kind { return KindShape }

func (s *RoundedRectangleShape) Intersect(ox, oy, oz, dx, dy, dz float32) (float32, bool) {
	if dz == 0 {
		return 0, false
	}
	t := -oz / dz
	if t < 0 {
		return 0, false
	}
	x := ox + t*dx
	y := oy + t*dy
	hw, hh, r := s.Width/2, s.Height/2, s.CornerRadius
	if x < -hw || x > hw || y < -hh || y > hh {
		return 0, false
	}
	// Inside the core rectangle unless in one of the four corner boxes,
	// where the point must additionally fall within r of the rounded
	// corner's center.
	cx, cy := float32(0), float32(0)
	inCornerBox := false
	switch {
	case x > hw-r && y > hh-r:
		cx, cy, inCornerBox = hw-r, hh-r, true
	case x > hw-r && y < -(hh-r):
		cx, cy, inCornerBox = hw-r, -(hh - r), true
	case x < -(hw-r) && y > hh-r:
		cx, cy, inCornerBox = -(hw - r), hh-r, true
	case x < -(hw-r) && y < -(hh-r):
		cx, cy, inCornerBox = -(hw - r), -(hh - r), true
	}
	if inCornerBox {
		dx2, dy2 := x-cx, y-cy
		if dx2*dx2+dy2*dy2 > r*r {
			return 0, false
		}
	}
	return t, true
}

// MeshShape holds opaque, core-blind vertex/index data plus an
// axis-aligned bounding box used for hit testing (full per-triangle
// intersection is out of scope; spec §1 excludes shader execution and the
// mesh-rendering pipeline itself).
type MeshShape struct {
	BoundsMin [3]float32
	BoundsMax [3]float32
}

func (s *MeshShape) Kind() Kind { return KindShape }

func (s *MeshShape) Intersect(ox, oy, oz, dx, dy, dz float32) (float32, bool) {
	tmin, tmax := float32(0), float32(math.MaxFloat32)
	o := [3]float32{ox, oy, oz}
	d := [3]float32{dx, dy, dz}
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < s.BoundsMin[i] || o[i] > s.BoundsMax[i] {
				return 0, false
			}
			continue
		}
		t1 := (s.BoundsMin[i] - o[i]) / d[i]
		t2 := (s.BoundsMax[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, false
		}
	}
	if tmin < 0 {
		return 0, false
	}
	return tmin, true
}
