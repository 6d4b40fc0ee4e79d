package scenegraph

// VariableType selects which value shape a Variable resource carries
// (spec §4.7's Variable-backed properties).
type VariableType int

const (
	VariableTypeVector3 VariableType = iota
	VariableTypeQuaternion
)

// Variable is a value cell a node property can bind to (spec §4.7): a
// one-way binding pushes the Variable's current value into every bound
// node property whenever SetVariableValue changes it, the way the
// teacher's GameObject.TransformData feeds an Animator's instance slot
// rather than the animator polling the object directly.
type Variable struct {
	Type       VariableType
	Vector3    [3]float32
	Quaternion [4]float32
}

// NewVariable returns a Variable of the given type with a neutral default
// value (zero vector, or identity quaternion).
func NewVariable(t VariableType) *Variable {
	return &Variable{Type: t, Quaternion: [4]float32{0, 0, 0, 1}}
}

func (v *Variable) Kind() Kind { return KindVariable }

// SetVector3 updates a VariableTypeVector3's value.
func (v *Variable) SetVector3(x, y, z float32) { v.Vector3 = [3]float32{x, y, z} }

// SetQuaternion updates a VariableTypeQuaternion's value.
func (v *Variable) SetQuaternion(x, y, z, w float32) { v.Quaternion = [4]float32{x, y, z, w} }
