// video_vdp.go - TMS9918-style video display processor
//
// Grounded in registers.go's const-block style and component_reset.go's
// Reset(mode) convention; register/rendering semantics follow spec.md §4.2
// directly (no teacher file implements a TMS9918 — the pack's video chips
// are AY/SID-adjacent sound engines and m68k/x86/z80 CPU cores, not video).

package machine

const (
	VRAMSize        = 16384
	VRAMAddrMask    = 0x3FFF
	TotalScanlines  = 262
	ActiveScanlines = 192
	FrameWidth      = 320
	FrameHeight     = 240
	visibleWidth    = 256
	visibleHeight   = 192
	borderX         = (FrameWidth - visibleWidth) / 2
	borderY         = (FrameHeight - visibleHeight) / 2
)

const (
	vdpModeGraphicsI = iota
	vdpModeGraphicsII
	vdpModeText
	vdpModeMulticolor
)

const (
	statusVI        = 0x80
	statusFifthSprite = 0x40
	statusCollision = 0x20
	statusSpriteIdxMask = 0x1F
)

// tms9918Palette is the standard 16-color TMS9918A palette (index 0 is
// transparent and rendered as backdrop).
var tms9918Palette = [16][4]byte{
	{0, 0, 0, 0xFF},       // 0 transparent
	{0, 0, 0, 0xFF},       // 1 black
	{0x21, 0xC8, 0x42, 0xFF}, // 2 medium green
	{0x5E, 0xDC, 0x78, 0xFF}, // 3 light green
	{0x54, 0x55, 0xED, 0xFF}, // 4 dark blue
	{0x7D, 0x76, 0xFC, 0xFF}, // 5 light blue
	{0xD4, 0x52, 0x4D, 0xFF}, // 6 dark red
	{0x42, 0xEB, 0xF5, 0xFF}, // 7 cyan
	{0xFC, 0x55, 0x54, 0xFF}, // 8 medium red
	{0xFF, 0x79, 0x78, 0xFF}, // 9 light red
	{0xD4, 0xC1, 0x54, 0xFF}, // A dark yellow
	{0xE6, 0xCE, 0x80, 0xFF}, // B light yellow
	{0x21, 0xB0, 0x3B, 0xFF}, // C dark green
	{0xC9, 0x5B, 0xBA, 0xFF}, // D magenta
	{0xCC, 0xCC, 0xCC, 0xFF}, // E gray
	{0xFF, 0xFF, 0xFF, 0xFF}, // F white
}

// VDP implements the two memory-mapped byte ports (data/control), the
// 16KB VRAM store, and the per-scanline rasterizer.
type VDP struct {
	vram [VRAMSize]byte
	addr uint16

	readBuffer byte
	latchStage int
	latchLow   byte

	regs   [8]byte
	status byte

	scanline int
	cycleAcc uint32

	frame [FrameWidth * FrameHeight * 4]byte

	onRender RenderFunc
	raiseIRQ IRQSource
}

func NewVDP(raiseIRQ IRQSource) *VDP {
	return &VDP{raiseIRQ: raiseIRQ}
}

func (v *VDP) SetRenderFunc(f RenderFunc) { v.onRender = f }

func (v *VDP) Reset(mode ResetMode) {
	if mode == ColdReset {
		v.vram = [VRAMSize]byte{}
	}
	v.addr = 0
	v.readBuffer = 0
	v.latchStage = 0
	v.latchLow = 0
	v.regs = [8]byte{}
	v.status = 0
	v.scanline = 0
	v.cycleAcc = 0
}

func (v *VDP) Read(offset uint16) byte {
	if offset&1 == 0 {
		return v.readData()
	}
	return v.readStatus()
}

func (v *VDP) Write(offset uint16, val byte) {
	if offset&1 == 0 {
		v.writeData(val)
	} else {
		v.writeControl(val)
	}
}

func (v *VDP) readData() byte {
	prior := v.readBuffer
	v.readBuffer = v.vram[v.addr]
	v.addr = (v.addr + 1) & VRAMAddrMask
	v.latchStage = 0
	return prior
}

func (v *VDP) writeData(val byte) {
	v.vram[v.addr] = val
	v.readBuffer = val
	v.addr = (v.addr + 1) & VRAMAddrMask
	v.latchStage = 0
}

func (v *VDP) readStatus() byte {
	val := v.status
	v.status = 0
	v.latchStage = 0
	v.raiseIRQ(false)
	return val
}

func (v *VDP) writeControl(val byte) {
	if v.latchStage == 0 {
		v.latchLow = val
		v.latchStage = 1
		return
	}
	v.latchStage = 0
	if val&0x80 != 0 {
		v.regs[val&0x07] = v.latchLow
		return
	}
	v.addr = (uint16(val&0x3F)<<8 | uint16(v.latchLow)) & VRAMAddrMask
	if val&0x40 == 0 {
		v.readBuffer = v.vram[v.addr]
		v.addr = (v.addr + 1) & VRAMAddrMask
	}
}

// SetRegister is a direct-setter path equivalent to the control-port
// register write (spec.md §8 invariant 9).
func (v *VDP) SetRegister(idx int, val byte) { v.regs[idx&0x07] = val }

func (v *VDP) mode() int {
	if v.regs[0]&0x02 != 0 {
		return vdpModeGraphicsII
	}
	b3 := v.regs[1]&0x08 != 0
	b4 := v.regs[1]&0x10 != 0
	switch {
	case b3 && !b4:
		return vdpModeMulticolor
	case b4 && !b3:
		return vdpModeText
	default:
		return vdpModeGraphicsI
	}
}

func (v *VDP) nameBase() uint16 { return uint16(v.regs[2]&0x0F) << 10 }

func (v *VDP) patternBase(gII bool) uint16 {
	mask := byte(0x07)
	if gII {
		mask = 0x04
	}
	return uint16(v.regs[4]&mask) << 11
}

func (v *VDP) colorBase(gII bool) uint16 {
	mask := byte(0xFF)
	if gII {
		mask = 0x80
	}
	return uint16(v.regs[3]&mask) << 6
}

func (v *VDP) spriteAttrBase() uint16    { return uint16(v.regs[5]&0x7F) << 7 }
func (v *VDP) spritePatternBase() uint16 { return uint16(v.regs[6]&0x07) << 11 }
func (v *VDP) backdrop() byte            { return v.regs[7] & 0x0F }
func (v *VDP) textFG() byte              { return (v.regs[7] >> 4) & 0x0F }

// Tick paces the scanline clock against the configured CPU frequency
// targeting ~60 frames per second (spec.md §4.2).
func (v *VDP) Tick(frequencyHz uint32) {
	cyclesPerScanline := frequencyHz / 60 / TotalScanlines
	if cyclesPerScanline == 0 {
		cyclesPerScanline = 1
	}
	v.cycleAcc += TickInterval
	for v.cycleAcc >= cyclesPerScanline {
		v.cycleAcc -= cyclesPerScanline
		v.advanceScanline()
	}
}

func (v *VDP) advanceScanline() {
	if v.scanline == 0 {
		v.status = 0
		v.fillBackdrop()
	}
	if v.scanline < ActiveScanlines {
		line := v.renderScanline(v.scanline)
		v.blitLine(v.scanline, line)
	}
	if v.scanline == ActiveScanlines-1 {
		if v.regs[1]&0x20 != 0 {
			v.status |= statusVI
			v.raiseIRQ(true)
		}
	}
	v.scanline++
	if v.scanline >= TotalScanlines {
		v.scanline = 0
		if v.onRender != nil {
			v.onRender(v.frame[:])
		}
	}
}

func (v *VDP) fillBackdrop() {
	c := tms9918Palette[v.backdrop()]
	for i := 0; i < FrameWidth*FrameHeight; i++ {
		copy(v.frame[i*4:i*4+4], c[:])
	}
}

func (v *VDP) blitLine(scanline int, line [visibleWidth]byte) {
	if v.regs[1]&0x40 == 0 {
		return // display disabled: leave backdrop
	}
	y := scanline + borderY
	rowOff := y * FrameWidth * 4
	for x := 0; x < visibleWidth; x++ {
		idx := line[x] & 0x0F
		if idx == 0 {
			idx = v.backdrop() // transparent shows the backdrop color
		}
		c := tms9918Palette[idx]
		off := rowOff + (x+borderX)*4
		copy(v.frame[off:off+4], c[:])
	}
}

func (v *VDP) renderScanline(scanline int) [visibleWidth]byte {
	var line [visibleWidth]byte
	switch v.mode() {
	case vdpModeGraphicsI:
		v.renderGraphicsI(scanline, &line)
	case vdpModeGraphicsII:
		v.renderGraphicsII(scanline, &line)
	case vdpModeText:
		v.renderText(scanline, &line)
		return line // sprites disabled in text mode
	case vdpModeMulticolor:
		v.renderMulticolor(scanline, &line)
	}
	v.overlaySprites(scanline, &line)
	return line
}

func (v *VDP) renderGraphicsI(scanline int, line *[visibleWidth]byte) {
	tileRow := scanline / 8
	lineInTile := scanline % 8
	name := v.nameBase()
	pattern := v.patternBase(false)
	color := v.colorBase(false)
	for col := 0; col < 32; col++ {
		tileIdx := v.vram[name+uint16(tileRow*32+col)]
		patByte := v.vram[pattern+uint16(tileIdx)*8+uint16(lineInTile)]
		colByte := v.vram[color+uint16(tileIdx)/8]
		fg, bg := colByte>>4, colByte&0x0F
		for px := 0; px < 8; px++ {
			bit := (patByte >> uint(7-px)) & 1
			c := bg
			if bit == 1 {
				c = fg
			}
			line[col*8+px] = c
		}
	}
}

func (v *VDP) renderGraphicsII(scanline int, line *[visibleWidth]byte) {
	tileRow := scanline / 8
	lineInTile := scanline % 8
	third := tileRow / 8
	pageOffset := uint16(third) * 0x800
	name := v.nameBase()
	pattern := v.patternBase(true)
	color := v.colorBase(true)
	for col := 0; col < 32; col++ {
		tileIdx := v.vram[name+uint16(tileRow*32+col)]
		addr := pageOffset + uint16(tileIdx)*8 + uint16(lineInTile)
		patByte := v.vram[pattern+addr]
		colByte := v.vram[color+addr]
		fg, bg := colByte>>4, colByte&0x0F
		for px := 0; px < 8; px++ {
			bit := (patByte >> uint(7-px)) & 1
			c := bg
			if bit == 1 {
				c = fg
			}
			line[col*8+px] = c
		}
	}
}

func (v *VDP) renderText(scanline int, line *[visibleWidth]byte) {
	tileRow := scanline / 8
	lineInTile := scanline % 8
	name := v.nameBase()
	pattern := v.patternBase(false)
	fg, bg := v.textFG(), v.backdrop()
	for i := 0; i < 8; i++ {
		line[i] = bg
		line[visibleWidth-1-i] = bg
	}
	for col := 0; col < 40; col++ {
		tileIdx := v.vram[name+uint16(tileRow*40+col)]
		patByte := v.vram[pattern+uint16(tileIdx)*8+uint16(lineInTile)]
		for px := 0; px < 6; px++ {
			bit := (patByte >> uint(7-px)) & 1
			c := bg
			if bit == 1 {
				c = fg
			}
			line[8+col*6+px] = c
		}
	}
}

func (v *VDP) renderMulticolor(scanline int, line *[visibleWidth]byte) {
	tileRow := scanline / 8
	byteIdx := (scanline % 8) / 4
	name := v.nameBase()
	pattern := v.patternBase(false)
	for col := 0; col < 32; col++ {
		tileIdx := v.vram[name+uint16(tileRow*32+col)]
		patByte := v.vram[pattern+uint16(tileIdx)*8+uint16(byteIdx)]
		left, right := patByte>>4, patByte&0x0F
		for px := 0; px < 4; px++ {
			line[col*8+px] = left
			line[col*8+4+px] = right
		}
	}
}

func (v *VDP) spritePatternByte(patIndex byte, size16 bool, row int, rightHalf bool) byte {
	base := v.spritePatternBase()
	if !size16 {
		return v.vram[base+uint16(patIndex)*8+uint16(row)]
	}
	quadrant := 0
	if rightHalf {
		quadrant += 2
	}
	if row >= 8 {
		quadrant++
		row -= 8
	}
	groupBase := uint16(patIndex&^0x03) * 8
	return v.vram[base+groupBase+uint16(quadrant)*8+uint16(row)]
}

func (v *VDP) overlaySprites(scanline int, line *[visibleWidth]byte) {
	attrBase := v.spriteAttrBase()
	size16 := v.regs[1]&0x02 != 0
	magnify := v.regs[1]&0x01 != 0

	baseSize := 8
	displayed := baseSize
	if size16 {
		baseSize = 16
		displayed = 16
	}
	if magnify {
		displayed *= 2
	}

	var pixelMask [visibleWidth]byte
	count := 0
	firstOnLine := true

	for i := 0; i < 32; i++ {
		y := v.vram[attrBase+uint16(i*4)]
		if y == 0xD0 {
			v.status = (v.status &^ statusSpriteIdxMask) | byte(i)
			break
		}
		effY := int(y) + 1
		if y > 0xE0 {
			effY = int(y) - 256 + 1
		}
		if scanline < effY || scanline >= effY+displayed {
			continue
		}
		if firstOnLine {
			pixelMask = [visibleWidth]byte{}
			firstOnLine = false
		}
		count++
		if count == 5 {
			v.status |= statusFifthSprite
			v.status = (v.status &^ statusSpriteIdxMask) | byte(i)
			break
		}

		xRaw := v.vram[attrBase+uint16(i*4+1)]
		patIdx := v.vram[attrBase+uint16(i*4+2)]
		colorByte := v.vram[attrBase+uint16(i*4+3)]
		color := colorByte & 0x0F
		x := int(xRaw)
		if colorByte&0x80 != 0 {
			x -= 32
		}

		row := scanline - effY
		if magnify {
			row /= 2
		}
		width := baseSize
		for px := 0; px < width; px++ {
			screenPx := x + px
			if magnify {
				screenPx = x + px*2
			}
			for rep := 0; rep <= boolToInt(magnify); rep++ {
				sx := screenPx + rep
				if sx < 0 || sx >= visibleWidth {
					continue
				}
				rightHalf := size16 && px >= 8
				localPx := px
				if rightHalf {
					localPx -= 8
				}
				patByte := v.spritePatternByte(patIdx, size16, row, rightHalf)
				bit := (patByte >> uint(7-localPx)) & 1
				if bit == 0 {
					continue
				}
				if pixelMask[sx] != 0 {
					v.status |= statusCollision
				} else {
					pixelMask[sx] = color + 1
					if color != 0 {
						line[sx] = color
					}
				}
			}
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
