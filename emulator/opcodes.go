package emulator

// instruction is an opcode split into its nibble fields.
type instruction struct {
	op  uint16
	i   uint8
	x   uint8
	y   uint8
	n   uint8
	nn  uint8
	nnn uint16
}

func decode(op uint16) instruction {
	return instruction{
		op:  op,
		i:   uint8(op >> 12),
		x:   uint8(op>>8) & 0xf,
		y:   uint8(op>>4) & 0xf,
		n:   uint8(op) & 0xf,
		nn:  uint8(op),
		nnn: op & 0x0fff,
	}
}

type opHandler func(c *Chip8, in instruction) error

// opcodeTable dispatches on the top nibble. Families 0, 8, E and F
// sub-dispatch on the low byte or nibble.
var opcodeTable = [16]opHandler{
	0x0: execSystem,
	0x1: opJump,
	0x2: opCall,
	0x3: opSkipEqualImm,
	0x4: opSkipNotEqualImm,
	0x5: opSkipEqualReg,
	0x6: opLoadImm,
	0x7: opAddImm,
	0x8: execALU,
	0x9: opSkipNotEqualReg,
	0xA: opLoadIndex,
	0xB: opJumpV0,
	0xC: opRandom,
	0xD: opDraw,
	0xE: execKey,
	0xF: execMisc,
}

var systemTable = map[uint16]opHandler{
	0x00E0: opClear,
	0x00EE: opReturn,
}

var aluTable = [16]opHandler{
	0x0: opMove,
	0x1: opOr,
	0x2: opAnd,
	0x3: opXor,
	0x4: opAdd,
	0x5: opSub,
	0x6: opShiftRight,
	0x7: opSubReverse,
	0xE: opShiftLeft,
}

var keyTable = map[uint8]opHandler{
	0x9E: opSkipKey,
	0xA1: opSkipNotKey,
}

var miscTable = map[uint8]opHandler{
	0x07: opLoadDelay,
	0x0A: opWaitKey,
	0x15: opSetDelay,
	0x18: opSetSound,
	0x1E: opAddIndex,
	0x29: opFontChar,
	0x33: opBCD,
	0x55: opStoreRegs,
	0x65: opLoadRegs,
}

func (c *Chip8) execOpcode(in instruction) error {
	return opcodeTable[in.i](c, in)
}

func execSystem(c *Chip8, in instruction) error {
	h, ok := systemTable[in.op]
	if !ok {
		return ErrUnknownOpcode
	}
	return h(c, in)
}

func execALU(c *Chip8, in instruction) error {
	h := aluTable[in.n]
	if h == nil {
		return ErrUnknownOpcode
	}
	return h(c, in)
}

func execKey(c *Chip8, in instruction) error {
	h, ok := keyTable[in.nn]
	if !ok {
		return ErrUnknownOpcode
	}
	return h(c, in)
}

func execMisc(c *Chip8, in instruction) error {
	h, ok := miscTable[in.nn]
	if !ok {
		return ErrUnknownOpcode
	}
	return h(c, in)
}

func (c *Chip8) skipIf(b bool) {
	if b {
		c.pc += 2
	}
}

// 00E0 clear display
func opClear(c *Chip8, _ instruction) error {
	c.disp = Framebuffer{}
	c.dirty = true
	return nil
}

// 00EE return from subroutine
func opReturn(c *Chip8, _ instruction) error {
	r, err := c.popStack()
	if err != nil {
		return err
	}
	c.pc = r
	return nil
}

// 1NNN goto NNN
func opJump(c *Chip8, in instruction) error {
	c.pc = in.nnn
	return nil
}

// 2NNN call NNN
func opCall(c *Chip8, in instruction) error {
	c.pushStack(c.pc)
	c.pc = in.nnn
	return nil
}

// 3XNN if(Vx==NN)
func opSkipEqualImm(c *Chip8, in instruction) error {
	c.skipIf(c.v[in.x] == in.nn)
	return nil
}

// 4XNN if(Vx!=NN)
func opSkipNotEqualImm(c *Chip8, in instruction) error {
	c.skipIf(c.v[in.x] != in.nn)
	return nil
}

// 5XY0 if(Vx==Vy)
func opSkipEqualReg(c *Chip8, in instruction) error {
	if in.n != 0 {
		return ErrUnknownOpcode
	}
	c.skipIf(c.v[in.x] == c.v[in.y])
	return nil
}

// 6XNN Vx = NN
func opLoadImm(c *Chip8, in instruction) error {
	c.v[in.x] = in.nn
	return nil
}

// 7XNN Vx += NN, carry flag is not changed
func opAddImm(c *Chip8, in instruction) error {
	c.v[in.x] += in.nn
	return nil
}

// 8XY0 Vx = Vy
func opMove(c *Chip8, in instruction) error {
	c.v[in.x] = c.v[in.y]
	return nil
}

// 8XY1 Vx |= Vy
func opOr(c *Chip8, in instruction) error {
	c.v[in.x] |= c.v[in.y]
	c.resetLogicFlag()
	return nil
}

// 8XY2 Vx &= Vy
func opAnd(c *Chip8, in instruction) error {
	c.v[in.x] &= c.v[in.y]
	c.resetLogicFlag()
	return nil
}

// 8XY3 Vx ^= Vy
func opXor(c *Chip8, in instruction) error {
	c.v[in.x] ^= c.v[in.y]
	c.resetLogicFlag()
	return nil
}

func (c *Chip8) resetLogicFlag() {
	if !c.quirks.KeepFlagOnLogic {
		c.v[0xf] = 0
	}
}

// 8XY4 Vx += Vy, VF = carry
func opAdd(c *Chip8, in instruction) error {
	sum := uint16(c.v[in.x]) + uint16(c.v[in.y])
	c.v[in.x] = uint8(sum)
	c.setFlag(sum > 0xff)
	return nil
}

// 8XY5 Vx -= Vy, VF = not borrow
func opSub(c *Chip8, in instruction) error {
	vx, vy := c.v[in.x], c.v[in.y]
	c.v[in.x] = vx - vy
	c.setFlag(vx >= vy)
	return nil
}

// 8XY6 Vx = Vy >> 1, VF = shifted out bit
func opShiftRight(c *Chip8, in instruction) error {
	src := c.shiftSource(in)
	c.v[in.x] = src >> 1
	c.setFlag(src&0x01 == 1)
	return nil
}

// 8XY7 Vx = Vy - Vx, VF = not borrow
func opSubReverse(c *Chip8, in instruction) error {
	vx, vy := c.v[in.x], c.v[in.y]
	c.v[in.x] = vy - vx
	c.setFlag(vy >= vx)
	return nil
}

// 8XYE Vx = Vy << 1, VF = shifted out bit
func opShiftLeft(c *Chip8, in instruction) error {
	src := c.shiftSource(in)
	c.v[in.x] = src << 1
	c.setFlag(src>>7 == 1)
	return nil
}

func (c *Chip8) shiftSource(in instruction) uint8 {
	if c.quirks.ShiftInPlace {
		return c.v[in.x]
	}
	return c.v[in.y]
}

// 9XY0 if(Vx!=Vy)
func opSkipNotEqualReg(c *Chip8, in instruction) error {
	if in.n != 0 {
		return ErrUnknownOpcode
	}
	c.skipIf(c.v[in.x] != c.v[in.y])
	return nil
}

// ANNN I = NNN
func opLoadIndex(c *Chip8, in instruction) error {
	c.i = in.nnn
	return nil
}

// BNNN PC = V0 + NNN
func opJumpV0(c *Chip8, in instruction) error {
	c.pc = in.nnn + uint16(c.v[0])
	return nil
}

// CXNN Vx = rand() & NN
func opRandom(c *Chip8, in instruction) error {
	c.v[in.x] = uint8(c.rng.Uint32()) & in.nn
	return nil
}

// DXYN draw(Vx, Vy, N); the origin wraps, the sprite body clips
func opDraw(c *Chip8, in instruction) error {
	sprite, err := c.memRange(c.i, int(in.n))
	if err != nil {
		return err
	}
	flipped := c.draw(c.v[in.x]%DisplayW, c.v[in.y]%DisplayH, sprite)
	c.setFlag(flipped)
	c.dirty = true
	return nil
}

// EX9E if(key[Vx])
func opSkipKey(c *Chip8, in instruction) error {
	c.skipIf(c.keys[c.v[in.x]&0xf])
	return nil
}

// EXA1 if(!key[Vx])
func opSkipNotKey(c *Chip8, in instruction) error {
	c.skipIf(!c.keys[c.v[in.x]&0xf])
	return nil
}

// FX07 Vx = delay
func opLoadDelay(c *Chip8, in instruction) error {
	c.v[in.x] = c.dt
	return nil
}

// FX0A Vx = get_key(); re-executed until a key is down so the timers keep
// running while the program waits
func opWaitKey(c *Chip8, in instruction) error {
	k, ok := c.pressedAnyKey()
	if !ok {
		c.pc -= 2
		return nil
	}
	c.v[in.x] = k
	return nil
}

// FX15 delay = Vx
func opSetDelay(c *Chip8, in instruction) error {
	c.dt = c.v[in.x]
	return nil
}

// FX18 sound = Vx
func opSetSound(c *Chip8, in instruction) error {
	c.st = c.v[in.x]
	return nil
}

// FX1E I += Vx, VF = I overflowed the address space
func opAddIndex(c *Chip8, in instruction) error {
	c.i += uint16(c.v[in.x])
	if !c.quirks.NoIndexOverflowFlag {
		c.setFlag(c.i > 0x0fff)
	}
	return nil
}

// FX29 I = sprite_addr[Vx]
func opFontChar(c *Chip8, in instruction) error {
	c.i = FontOffset + uint16(c.v[in.x]&0xf)*CharacterSpriteBytes
	return nil
}

// FX33 set_BCD(Vx)
func opBCD(c *Chip8, in instruction) error {
	dst, err := c.memRange(c.i, 3)
	if err != nil {
		return err
	}
	vx := c.v[in.x]
	dst[0] = vx / 100
	dst[1] = (vx % 100) / 10
	dst[2] = vx % 10
	return nil
}

// FX55 reg_dump(Vx, &I)
func opStoreRegs(c *Chip8, in instruction) error {
	dst, err := c.memRange(c.i, int(in.x)+1)
	if err != nil {
		return err
	}
	copy(dst, c.v[:in.x+1])
	c.advanceIndex(in.x)
	return nil
}

// FX65 reg_load(Vx, &I)
func opLoadRegs(c *Chip8, in instruction) error {
	src, err := c.memRange(c.i, int(in.x)+1)
	if err != nil {
		return err
	}
	copy(c.v[:in.x+1], src)
	c.advanceIndex(in.x)
	return nil
}

func (c *Chip8) advanceIndex(x uint8) {
	if !c.quirks.StaticIndex {
		c.i += uint16(x) + 1
	}
}
