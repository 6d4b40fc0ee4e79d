package scenegraph

// Material is color plus an optional texture reference (spec §3). The
// texture, if set, must reference an Image or ImagePipe resource; the
// core never inspects pixel contents, only ref-counts and carries the id.
type Material struct {
	Color   [4]float32 // rgba
	Texture ResourceID
}

func NewMaterial() *Material {
	return &Material{Color: [4]float32{1, 1, 1, 1}}
}

func (m *Material) Kind() Kind { return KindMaterial }

// ImageFormat identifies the opaque pixel layout of an Image (core-blind
// beyond size/format bookkeeping, spec §3).
type ImageFormat int

const (
	ImageFormatBGRA8 ImageFormat = iota
	ImageFormatRGBA8
	ImageFormatYUY2
	ImageFormatNV12
)

// Image is a GPU-visible resource backed by a single Memory allocation at
// a byte offset, opaque to the core except for ref-counting and its
// size/format tuple (spec §3).
type Image struct {
	Memory ResourceID
	Offset uint64
	Width  int
	Height int
	Format ImageFormat
}

func (i *Image) Kind() Kind { return KindImage }

// ImagePipe is a producer/consumer queue of Image contents, presented at
// scheduled times via the session's image-pipe update queue (spec §4.6).
// Frame contents themselves are opaque; the core only tracks which frame
// is current for rendering.
type ImagePipe struct {
	Width, Height int
	Format        ImageFormat
	currentImage  ResourceID
}

func NewImagePipe(width, height int, format ImageFormat) *ImagePipe {
	return &ImagePipe{Width: width, Height: height, Format: format}
}

func (p *ImagePipe) Kind() Kind { return KindImagePipe }

// SetCurrentImage updates the image the pipe currently presents, called
// by the session's image-pipe update processing (spec §4.6).
func (p *ImagePipe) SetCurrentImage(id ResourceID) { p.currentImage = id }

// CurrentImage returns the image the pipe currently presents.
func (p *ImagePipe) CurrentImage() ResourceID { return p.currentImage }

// Buffer is an opaque range within a Memory allocation, used for e.g. a
// Camera's pose buffer (spec §3).
type Buffer struct {
	Memory ResourceID
	Offset uint64
	Size   uint64
}

func (b *Buffer) Kind() Kind { return KindBuffer }

// Memory is an opaque GPU-visible allocation, ref-counted but never
// inspected by the core (spec §3).
type Memory struct {
	Size uint64
}

func (m *Memory) Kind() Kind { return KindMemory }
