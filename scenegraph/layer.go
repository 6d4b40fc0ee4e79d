package scenegraph

// Layer binds a Renderer resource to a position/size on the framebuffer
// (spec §3). It is drawable only once it has both a renderer and a
// non-empty size.
type Layer struct {
	Renderer    ResourceID
	Width, Height int
	TranslateX, TranslateY, TranslateZ float32
	Color       [4]float32
	Opaque      bool
}

func NewLayer() *Layer {
	return &Layer{Color: [4]float32{0, 0, 0, 1}}
}

func (l *Layer) Kind() Kind { return KindLayer }

// Drawable reports whether the layer has a renderer and non-empty size.
func (l *Layer) Drawable() bool {
	return l.Renderer != NilResource && l.Width > 0 && l.Height > 0
}

// LayerStack is an ordered set of Layers composited back-to-front (spec
// §3).
type LayerStack struct {
	Layers []ResourceID
}

func NewLayerStack() *LayerStack { return &LayerStack{} }

func (s *LayerStack) Kind() Kind { return KindLayerStack }

// AddLayer appends id to the stack (top of the ordering).
func (s *LayerStack) AddLayer(id ResourceID) { s.Layers = append(s.Layers, id) }

// RemoveLayer removes id from the stack, if present.
func (s *LayerStack) RemoveLayer(id ResourceID) {
	for i, l := range s.Layers {
		if l == id {
			s.Layers = append(s.Layers[:i], s.Layers[i+1:]...)
			return
		}
	}
}
