// frontend_ebiten.go - windowed frontend: ebiten video, oto audio, clipboard paste
//
// Grounded in video_backend_ebiten.go's EbitenOutput (frame buffer behind
// a sync.RWMutex, Draw/Layout/Update satisfying ebiten.Game, Ctrl+Shift+V
// clipboard paste, F11 fullscreen toggle) and audio_backend_oto.go's
// OtoPlayer (atomic chip pointer, oto.NewContext, a Read callback pulling
// samples on oto's own goroutine). Video is narrowed to push straight
// from the machine's RenderFunc callback, since the host step here is
// synchronous; audio keeps the pull model, with AudioFunc appending to
// otoSink's buffer and oto's Read callback draining it. Selected
// at runtime via --headless rather than the teacher's build-tag swap,
// since both backends' dependencies are already in the module's stack.
// The boot splash and the F1 register overlay (frontend_overlay.go) render
// with golang.org/x/image/font the way the teacher's embedded-font splash
// screen does.

package main

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"

	"github.com/zotley/octabus65/machine"
)

type windowedGame struct {
	m *machine.Machine

	frameMu sync.RWMutex
	frame   []byte
	window  *ebiten.Image

	fullscreen bool
	scale      int
	lastUpdate time.Time
	carry      float64

	clipboardOnce sync.Once
	clipboardOK   bool

	showDebugOverlay bool
	drawCount        int
}

func newWindowedGame(m *machine.Machine, scale int) *windowedGame {
	g := &windowedGame{
		m:          m,
		frame:      make([]byte, machine.FrameWidth*machine.FrameHeight*4),
		scale:      scale,
		lastUpdate: time.Now(),
	}
	m.SetRenderFunc(g.onRender)
	return g
}

func (g *windowedGame) onRender(frame []byte) {
	g.frameMu.Lock()
	copy(g.frame, frame)
	g.frameMu.Unlock()
}

// Update runs on ebiten's single game goroutine, so pacing the machine
// here (rather than from a second goroutine) keeps every CPU/bus access
// single-threaded, matching spec.md's cooperative scheduler.
func (g *windowedGame) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		g.fullscreen = !g.fullscreen
		ebiten.SetFullscreen(g.fullscreen)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.showDebugOverlay = !g.showDebugOverlay
	}
	g.handleKeyboard()
	g.handleJoystick()

	now := time.Now()
	elapsedMs := float64(now.Sub(g.lastUpdate)) / float64(time.Millisecond)
	g.lastUpdate = now
	g.carry = g.m.RunFor(elapsedMs, g.carry)
	return nil
}

func (g *windowedGame) Draw(screen *ebiten.Image) {
	if g.window == nil {
		g.window = ebiten.NewImage(machine.FrameWidth, machine.FrameHeight)
	}
	g.frameMu.RLock()
	g.window.WritePixels(g.frame)
	g.frameMu.RUnlock()
	screen.DrawImage(g.window, nil)

	g.drawCount++
	if g.drawCount <= splashFrameCount {
		screen.DrawImage(splashOverlay(), nil)
	}
	if g.showDebugOverlay {
		screen.DrawImage(debugOverlayImage(g.m.CPU), nil)
	}
}

func (g *windowedGame) Layout(_, _ int) (int, int) {
	return machine.FrameWidth, machine.FrameHeight
}

// hidKeymap maps the ebiten keys this frontend recognises onto their
// USB-HID usage codes (machine.HIDKeyA et al.); unrecognised keys are
// simply never pressed from this frontend's point of view.
var hidKeymap = map[ebiten.Key]byte{
	ebiten.KeyEnter:     machine.HIDEnter,
	ebiten.KeyEscape:    machine.HIDEscape,
	ebiten.KeyBackspace: machine.HIDBackspace,
	ebiten.KeyTab:       machine.HIDTab,
	ebiten.KeySpace:     machine.HIDSpace,
	ebiten.KeyUp:        machine.HIDUp,
	ebiten.KeyDown:      machine.HIDDown,
	ebiten.KeyLeft:      machine.HIDLeft,
	ebiten.KeyRight:     machine.HIDRight,
}

func (g *windowedGame) handleKeyboard() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		g.pasteClipboard()
	}

	for key, hid := range hidKeymap {
		if inpututil.IsKeyJustPressed(key) {
			g.m.OnKeyDown(hid)
		}
		if inpututil.IsKeyJustReleased(key) {
			g.m.OnKeyUp(hid)
		}
	}
	for r := ebiten.KeyA; r <= ebiten.KeyZ; r++ {
		hid := machine.HIDKeyA + byte(r-ebiten.KeyA)
		if inpututil.IsKeyJustPressed(r) {
			g.m.OnKeyDown(hid)
		}
		if inpututil.IsKeyJustReleased(r) {
			g.m.OnKeyUp(hid)
		}
	}
}

func (g *windowedGame) handleJoystick() {
	var mask byte
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		mask |= machine.JoyUp
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		mask |= machine.JoyDown
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		mask |= machine.JoyLeft
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		mask |= machine.JoyRight
	}
	if ebiten.IsKeyPressed(ebiten.KeyZ) {
		mask |= machine.JoyA
	}
	if ebiten.IsKeyPressed(ebiten.KeyX) {
		mask |= machine.JoyB
	}
	g.m.OnJoystick(mask)
}

func (g *windowedGame) pasteClipboard() {
	g.clipboardOnce.Do(func() {
		g.clipboardOK = clipboard.Init() == nil
	})
	if !g.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	const maxPaste = 4096
	if len(data) > maxPaste {
		data = data[:maxPaste]
	}
	for _, b := range data {
		g.m.OnReceive(b)
	}
}

// otoSink streams the machine's audio callback into an oto player. The
// chip's samples arrive synchronously from SoundCard.Tick on the run
// loop's goroutine; oto pulls from its own goroutine via Read, so the
// bridge is a small ring behind a mutex rather than the teacher's
// atomic.Pointer swap (there is exactly one producer and one consumer
// here, never a hot-swapped chip).
type otoSink struct {
	mu  sync.Mutex
	buf []float32
}

func (s *otoSink) onAudio(samples []float32) {
	s.mu.Lock()
	s.buf = append(s.buf, samples...)
	const maxBuffered = 44100 // 1s ceiling so a stalled player can't grow this unbounded
	if len(s.buf) > maxBuffered {
		s.buf = s.buf[len(s.buf)-maxBuffered:]
	}
	s.mu.Unlock()
}

func (s *otoSink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(p) / 4
	if n > len(s.buf) {
		n = len(s.buf)
	}
	for i := 0; i < n; i++ {
		bits := float32ToLEBytes(s.buf[i])
		copy(p[i*4:], bits[:])
	}
	for i := n * 4; i < len(p); i++ {
		p[i] = 0
	}
	s.buf = s.buf[n:]
	return len(p), nil
}

func float32ToLEBytes(f float32) [4]byte {
	bits := math.Float32bits(f)
	return [4]byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}

func runWindowed(m *machine.Machine) error {
	const sampleRate = 44100
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("oto: %w", err)
	}
	<-ready

	sink := &otoSink{}
	m.SetAudioFunc(sink.onAudio)
	player := otoCtx.NewPlayer(sink)
	player.Play()
	defer player.Close()

	game := newWindowedGame(m, flagScale)

	ebiten.SetWindowSize(machine.FrameWidth*game.scale, machine.FrameHeight*game.scale)
	ebiten.SetWindowTitle("octabus65")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)

	return ebiten.RunGame(game)
}
