package classfile

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcodes understood by the executor.
const (
	OP_NOP           byte = 0x00
	OP_ACONST_NULL   byte = 0x01
	OP_ICONST_M1     byte = 0x02
	OP_ICONST_0      byte = 0x03
	OP_ICONST_1      byte = 0x04
	OP_ICONST_2      byte = 0x05
	OP_ICONST_3      byte = 0x06
	OP_ICONST_4      byte = 0x07
	OP_ICONST_5      byte = 0x08
	OP_ILOAD         byte = 0x15
	OP_LLOAD         byte = 0x16
	OP_FLOAD         byte = 0x17
	OP_DLOAD         byte = 0x18
	OP_ALOAD         byte = 0x19
	OP_ILOAD_0       byte = 0x1a
	OP_LLOAD_0       byte = 0x1e
	OP_FLOAD_0       byte = 0x22
	OP_DLOAD_0       byte = 0x26
	OP_ALOAD_0       byte = 0x2a
	OP_POP           byte = 0x57
	OP_IRETURN       byte = 0xac
	OP_ARETURN       byte = 0xb0
	OP_RETURN        byte = 0xb1
	OP_GETSTATIC     byte = 0xb2
	OP_PUTSTATIC     byte = 0xb3
	OP_GETFIELD      byte = 0xb4
	OP_INVOKEVIRTUAL byte = 0xb6
)

type opInfo struct {
	name    string
	operand int // width in bytes of the immediate operand
}

var opTable = map[byte]opInfo{
	OP_NOP:           {"nop", 0},
	OP_ACONST_NULL:   {"aconst_null", 0},
	OP_ILOAD:         {"iload", 1},
	OP_LLOAD:         {"lload", 1},
	OP_FLOAD:         {"fload", 1},
	OP_DLOAD:         {"dload", 1},
	OP_ALOAD:         {"aload", 1},
	OP_POP:           {"pop", 0},
	OP_IRETURN:       {"ireturn", 0},
	OP_ARETURN:       {"areturn", 0},
	OP_RETURN:        {"return", 0},
	OP_GETSTATIC:     {"getstatic", 2},
	OP_PUTSTATIC:     {"putstatic", 2},
	OP_GETFIELD:      {"getfield", 2},
	OP_INVOKEVIRTUAL: {"invokevirtual", 2},
}

var opByName map[string]byte

func init() {
	for i := byte(0); i <= 6; i++ {
		name := "iconst_" + strconv.Itoa(int(i)-1)
		if i == 0 {
			name = "iconst_m1"
		}
		opTable[OP_ICONST_M1+i] = opInfo{name, 0}
	}
	for i := byte(0); i < 4; i++ {
		suffix := "_" + strconv.Itoa(int(i))
		opTable[OP_ILOAD_0+i] = opInfo{"iload" + suffix, 0}
		opTable[OP_LLOAD_0+i] = opInfo{"lload" + suffix, 0}
		opTable[OP_FLOAD_0+i] = opInfo{"fload" + suffix, 0}
		opTable[OP_DLOAD_0+i] = opInfo{"dload" + suffix, 0}
		opTable[OP_ALOAD_0+i] = opInfo{"aload" + suffix, 0}
	}
	opByName = make(map[string]byte, len(opTable))
	for op, info := range opTable {
		opByName[info.name] = op
	}
}

// Mnemonic returns the name of op, or "op_0x.." for unknown opcodes.
func Mnemonic(op byte) string {
	if info, ok := opTable[op]; ok {
		return info.name
	}
	return fmt.Sprintf("op_0x%02x", op)
}

// Length returns the length in bytes of the instruction starting with op,
// or 0 for unknown opcodes.
func Length(op byte) int {
	if info, ok := opTable[op]; ok {
		return 1 + info.operand
	}
	return 0
}

// Disassemble renders the instruction at pc, e.g. "getfield 3".
func Disassemble(code []byte, pc int) string {
	if pc < 0 || pc >= len(code) {
		return "<out of code>"
	}
	op := code[pc]
	info, ok := opTable[op]
	if !ok {
		return Mnemonic(op)
	}
	if pc+info.operand >= len(code) {
		return info.name + " <truncated>"
	}
	switch info.operand {
	case 1:
		return info.name + " " + strconv.Itoa(int(code[pc+1]))
	case 2:
		return info.name + " " + strconv.Itoa(int(code[pc+1])<<8|int(code[pc+2]))
	}
	return info.name
}

// Assemble translates mnemonic source lines ("aload_0", "getfield 3") into
// bytecode. Operands are decimal; two-byte operands are stored big-endian.
func Assemble(source []string) ([]byte, error) {
	var code []byte
	for i, line := range source {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		op, ok := opByName[fields[0]]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown instruction %q", i+1, fields[0])
		}
		info := opTable[op]
		if len(fields)-1 != min(info.operand, 1) {
			return nil, fmt.Errorf("line %d: %s takes %d operand(s), got %d", i+1, info.name, min(info.operand, 1), len(fields)-1)
		}
		code = append(code, op)
		if info.operand == 0 {
			continue
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: operand of %s: %w", i+1, info.name, err)
		}
		limit := 1<<(8*info.operand) - 1
		if n < 0 || n > limit {
			return nil, fmt.Errorf("line %d: operand %d of %s out of range [0, %d]", i+1, n, info.name, limit)
		}
		if info.operand == 2 {
			code = append(code, byte(n>>8))
		}
		code = append(code, byte(n))
	}
	return code, nil
}
