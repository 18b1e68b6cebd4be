// frontend_headless.go - terminal frontend: raw stdin serial console
//
// Grounded in terminal_host.go (IntuitionAmiga-IntuitionEngine): raw
// mode via golang.org/x/term, a non-blocking read loop on a background
// goroutine translating CR->LF and DEL->BS, restored on exit (here via
// golang.org/x/sys/unix instead of the teacher's plain syscall package,
// and SIGINT/SIGTERM wired through signal.NotifyContext so Ctrl+C still
// flushes the CF backing file through Machine.End()). A gdamore/tcell/v2
// screen renders a one-line register status bar above the scrolling
// serial output, replacing the teacher's plain PrintOutput-to-stdout
// loop since this frontend has no graphical window to show state in.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/zotley/octabus65/machine"
)

type headlessConsole struct {
	m *machine.Machine

	mu     sync.Mutex
	output []byte

	screen tcell.Screen
}

func (c *headlessConsole) onTransmit(b byte) {
	c.mu.Lock()
	c.output = append(c.output, b)
	c.mu.Unlock()
}

func (c *headlessConsole) drainOutput() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.output) == 0 {
		return nil
	}
	out := c.output
	c.output = nil
	return out
}

func runHeadless(m *machine.Machine) error {
	console := &headlessConsole{m: m}
	m.SetTransmitFunc(console.onTransmit)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("tcell: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("tcell init: %w", err)
	}
	console.screen = screen
	defer screen.Fini()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("term: %w", err)
	}
	defer term.Restore(fd, oldState)
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("term nonblock: %w", err)
	}
	defer unix.SetNonblock(fd, false)

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	stdinBytes := make(chan byte, 256)
	go readStdin(ctx, fd, stdinBytes)

	tick := time.NewTicker(16 * time.Millisecond)
	defer tick.Stop()

	var carry float64
	last := time.Now()
	var log []byte

	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-stdinBytes:
			if b == 0x03 { // Ctrl+C still quits even though SIGINT is raw-mode-suppressed
				return nil
			}
			m.OnReceive(b)
		case now := <-tick.C:
			elapsedMs := float64(now.Sub(last)) / float64(time.Millisecond)
			last = now
			carry = m.RunFor(elapsedMs, carry)
			log = appendCapped(log, console.drainOutput(), 4096)
			drawConsole(screen, m, log)
		}
	}
}

func appendCapped(log []byte, add []byte, max int) []byte {
	log = append(log, add...)
	if len(log) > max {
		log = log[len(log)-max:]
	}
	return log
}

func readStdin(ctx context.Context, fd int, out chan<- byte) {
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := unix.Read(fd, buf)
		if n > 0 {
			b := buf[0]
			if b == '\r' {
				b = '\n'
			}
			if b == 0x7F {
				b = 0x08
			}
			out <- b
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func drawConsole(screen tcell.Screen, m *machine.Machine, log []byte) {
	screen.Clear()
	w, h := screen.Size()

	status := fmt.Sprintf(" PC=%04X A=%02X X=%02X Y=%02X cycles=%d ", m.CPU.PC, m.CPU.A, m.CPU.X, m.CPU.Y, m.CPU.Cycles)
	drawRow(screen, 0, w, status, tcell.StyleDefault.Reverse(true))

	lines := splitLastLines(log, h-1)
	for i, line := range lines {
		drawRow(screen, i+1, w, line, tcell.StyleDefault)
	}
	screen.Show()
}

func drawRow(screen tcell.Screen, row, width int, text string, style tcell.Style) {
	for col := 0; col < width; col++ {
		r := ' '
		if col < len(text) {
			r = rune(text[col])
		}
		screen.SetContent(col, row, r, nil, style)
	}
}

func splitLastLines(log []byte, max int) []string {
	var lines []string
	var cur []byte
	for _, b := range log {
		if b == '\n' {
			lines = append(lines, string(cur))
			cur = nil
			continue
		}
		cur = append(cur, b)
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	if len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	return lines
}
