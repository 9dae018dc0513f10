package core

import "github.com/spaghettifunk/umbra/engine/containers"

const avgCount = 30

// Metrics keeps a rolling frame-time average and a once-per-second FPS count.
type Metrics struct {
	frameTimes  *containers.RingQueue[float64]
	msSum       float64
	msAvg       float64
	frames      int
	accumulated float64
	fps         float64
}

func NewMetrics() *Metrics {
	return &Metrics{
		frameTimes: containers.NewRingQueue[float64](avgCount),
	}
}

// Update records a frame that took frameSeconds.
func (m *Metrics) Update(frameSeconds float64) {
	frameMS := frameSeconds * 1000.0
	if m.frameTimes.IsFull() {
		oldest, _ := m.frameTimes.Dequeue()
		m.msSum -= oldest
	}
	_ = m.frameTimes.Enqueue(frameMS)
	m.msSum += frameMS
	m.msAvg = m.msSum / float64(m.frameTimes.Len())

	m.frames++
	m.accumulated += frameMS
	if m.accumulated > 1000 {
		m.fps = float64(m.frames)
		m.accumulated -= 1000
		m.frames = 0
	}
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

// FrameTime is the average frame time in milliseconds over the last avgCount frames.
func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}
