package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/math"
)

const (
	updViewProj = 1 << iota
	updInvView
	updEyePos
	updModelView
	updInvModelView
	updMvp
	updNormal
	updNormalView
)

// Matrices holds projection, view and model and derives the combined
// matrices lazily, the first time they are asked for after a change.
type Matrices struct {
	projection mgl32.Mat4
	view       mgl32.Mat4
	model      mgl32.Mat4

	viewProj     mgl32.Mat4
	invView      mgl32.Mat4
	eyePos       mgl32.Vec3
	modelView    mgl32.Mat4
	invModelView mgl32.Mat4
	mvp          mgl32.Mat4
	normal       mgl32.Mat3
	normalView   mgl32.Mat3

	dirty uint32
}

func NewMatrices() *Matrices {
	m := &Matrices{}
	m.SetProjection(mgl32.Ident4())
	m.SetView(mgl32.Ident4())
	m.SetModel(mgl32.Ident4())
	return m
}

func (m *Matrices) SetProjection(projection mgl32.Mat4) {
	m.projection = projection
	m.dirty |= updMvp | updViewProj
}

// SetView also drops any eye position override.
func (m *Matrices) SetView(view mgl32.Mat4) {
	m.view = view
	m.dirty |= updViewProj | updInvView | updEyePos | updModelView | updInvModelView | updMvp | updNormalView
}

func (m *Matrices) SetModel(model mgl32.Mat4) {
	m.model = model
	m.dirty |= updModelView | updInvModelView | updMvp | updNormal | updNormalView
}

// SetEyePos overrides the eye position derived from the view matrix until
// the next SetView.
func (m *Matrices) SetEyePos(eye mgl32.Vec3) {
	m.eyePos = eye
	m.dirty &^= updEyePos
}

func (m *Matrices) Projection() mgl32.Mat4 { return m.projection }
func (m *Matrices) View() mgl32.Mat4       { return m.view }
func (m *Matrices) Model() mgl32.Mat4      { return m.model }

func (m *Matrices) ViewProjection() mgl32.Mat4 {
	if m.dirty&updViewProj != 0 {
		m.viewProj = m.projection.Mul4(m.view)
		m.dirty &^= updViewProj
	}
	return m.viewProj
}

func (m *Matrices) InverseView() mgl32.Mat4 {
	if m.dirty&updInvView != 0 {
		m.invView = m.view.Inv()
		m.dirty &^= updInvView
	}
	return m.invView
}

func (m *Matrices) EyePos() mgl32.Vec3 {
	if m.dirty&updEyePos != 0 {
		m.eyePos = math.Translation(m.InverseView())
		m.dirty &^= updEyePos
	}
	return m.eyePos
}

func (m *Matrices) ModelView() mgl32.Mat4 {
	if m.dirty&updModelView != 0 {
		m.modelView = m.view.Mul4(m.model)
		m.dirty &^= updModelView
	}
	return m.modelView
}

func (m *Matrices) InverseModelView() mgl32.Mat4 {
	if m.dirty&updInvModelView != 0 {
		m.invModelView = m.ModelView().Inv()
		m.dirty &^= updInvModelView
	}
	return m.invModelView
}

func (m *Matrices) MVP() mgl32.Mat4 {
	if m.dirty&updMvp != 0 {
		m.mvp = m.projection.Mul4(m.ModelView())
		m.dirty &^= updMvp
	}
	return m.mvp
}

// Normal transforms model space normals to world space.
func (m *Matrices) Normal() mgl32.Mat3 {
	if m.dirty&updNormal != 0 {
		m.normal = math.NormalMatrix(m.model)
		m.dirty &^= updNormal
	}
	return m.normal
}

// NormalView transforms model space normals to view space.
func (m *Matrices) NormalView() mgl32.Mat3 {
	if m.dirty&updNormalView != 0 {
		m.normalView = math.NormalMatrix(m.ModelView())
		m.dirty &^= updNormalView
	}
	return m.normalView
}
