package scenegraph

import "github.com/nimbusgfx/compositor/common"

// Camera holds eye/look-at/up and a derived projection matrix (spec §3).
// Unlike the teacher's engine/camera.Camera, there is no attached
// CameraController here: the scene graph's Camera is a passive resource
// authored by SetCameraPose/SetCameraProjection commands (spec §4.7),
// not a per-frame input-driven controller — that concern is out of scope
// for a display-compositing core (spec §1).
type Camera struct {
	sceneID ResourceID

	eye    [3]float32
	lookAt [3]float32
	up     [3]float32

	fovY, aspect, near, far float32

	poseBuffer ResourceID // optional, for head-mounted latched pose
}

func NewCamera(sceneID ResourceID) *Camera {
	return &Camera{
		sceneID: sceneID,
		up:      [3]float32{0, 1, 0},
		fovY:    1.0,
		aspect:  16.0 / 9.0,
		near:    0.1,
		far:     1000,
	}
}

func (c *Camera) Kind() Kind { return KindCamera }

// SceneID returns the Scene resource this camera renders.
func (c *Camera) SceneID() ResourceID { return c.sceneID }

// SetPose updates the camera's eye/look-at/up vectors.
func (c *Camera) SetPose(eye, lookAt, up [3]float32) {
	c.eye, c.lookAt, c.up = eye, lookAt, up
}

// SetProjection updates the camera's perspective parameters.
func (c *Camera) SetProjection(fovY, aspect, near, far float32) {
	c.fovY, c.aspect, c.near, c.far = fovY, aspect, near, far
}

// SetPoseBuffer attaches an optional pose Buffer resource, latched at
// render time against the frame's target presentation time (spec §3).
func (c *Camera) SetPoseBuffer(id ResourceID) { c.poseBuffer = id }

// PoseBuffer returns the camera's optional pose Buffer resource.
func (c *Camera) PoseBuffer() ResourceID { return c.poseBuffer }

// ViewMatrix computes the camera's current view matrix.
func (c *Camera) ViewMatrix() [16]float32 {
	var m [16]float32
	common.LookAt(m[:],
		c.eye[0], c.eye[1], c.eye[2],
		c.lookAt[0], c.lookAt[1], c.lookAt[2],
		c.up[0], c.up[1], c.up[2])
	return m
}

// ProjectionMatrix computes the camera's current perspective projection
// matrix.
func (c *Camera) ProjectionMatrix() [16]float32 {
	var m [16]float32
	common.Perspective(m[:], c.fovY, c.aspect, c.near, c.far)
	return m
}

// StereoCamera is a Camera with a second eye/projection pair for
// head-mounted rendering (spec §3).
type StereoCamera struct {
	Camera
	eyeRight       [3]float32
	projRightFovY  float32
	projRightAspect float32
}

func NewStereoCamera(sceneID ResourceID) *StereoCamera {
	return &StereoCamera{Camera: *NewCamera(sceneID)}
}

func (c *StereoCamera) Kind() Kind { return KindStereoCamera }

// SetRightEyePose updates the right eye's position (left eye uses the
// embedded Camera's pose).
func (c *StereoCamera) SetRightEyePose(eye [3]float32) { c.eyeRight = eye }

// SetRightEyeProjection updates the right eye's perspective parameters.
func (c *StereoCamera) SetRightEyeProjection(fovY, aspect float32) {
	c.projRightFovY, c.projRightAspect = fovY, aspect
}

// RightEyeProjectionMatrix computes the right eye's projection matrix,
// sharing the left eye's near/far planes.
func (c *StereoCamera) RightEyeProjectionMatrix() [16]float32 {
	var m [16]float32
	common.Perspective(m[:], c.projRightFovY, c.projRightAspect, c.near, c.far)
	return m
}

// ShadowTechnique enumerates the Renderer resource's shadow-technique
// selector (spec §3). The core never implements shadowing itself (out of
// scope, spec §1); this is carried purely as renderer-collaborator
// configuration.
type ShadowTechnique int

const (
	ShadowTechniqueNone ShadowTechnique = iota
	ShadowTechniqueShadowMap
	ShadowTechniqueMomentShadowMap
)

// RendererResource is the scene graph's "Renderer" resource (spec §3): a
// camera plus a shadow-technique selector and a debug flag, distinct from
// the top-level renderer package's Backend and Compositor, which actually
// draw frames.
type RendererResource struct {
	Camera ResourceID
	Shadow ShadowTechnique
	Debug  bool
}

func NewRendererResource() *RendererResource { return &RendererResource{} }

func (r *RendererResource) Kind() Kind { return KindRenderer }
