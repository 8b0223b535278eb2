package model

// Location is a position in the game world. Value type, passed and stored by
// value.
type Location struct {
	X int32
	Y int32
	Z int32
}

// NewLocation creates a Location with the given coordinates.
func NewLocation(x, y, z int32) Location {
	return Location{X: x, Y: y, Z: z}
}

// WithCoordinates returns a copy with replaced coordinates.
func (l Location) WithCoordinates(x, y, z int32) Location {
	l.X = x
	l.Y = y
	l.Z = z
	return l
}

// DistanceSquared returns the squared distance to other (no sqrt on the hot
// path).
func (l Location) DistanceSquared(other Location) int64 {
	dx := int64(l.X - other.X)
	dy := int64(l.Y - other.Y)
	dz := int64(l.Z - other.Z)
	return dx*dx + dy*dy + dz*dz
}
