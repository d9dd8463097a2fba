package bytecode

import (
	"encoding/binary"
	"fmt"
)

// arity reports how many 4-byte little-endian operands follow the opcode
// byte. Operands are fixed-width so that jump targets can be back-patched
// by byte offset once their destination is known.
func arity(op Op) int {
	switch op {
	case Duplicate, Rotate, Pop, Store, Load, LoadField, LoadConstant, LoadModule,
		Jump, JumpIfNil, JumpIfTrue, JumpIfFalse, JumpIfEmpty, JumpIfNotEmpty,
		Call, Apply, SetupCatch, BuildList, BuildMacro, BuildTemplate:
		return 1
	case LoadCode, JumpIfSize:
		return 2
	default:
		return 0
	}
}

// InstrSize is the encoded size, in bytes, of an instruction with n operands.
func InstrSize(n int) int { return 1 + 4*n }

// Instruction is a single decoded opcode plus its operands.
type Instruction struct {
	Op       Op
	Operands []int
}

// Append encodes op with the given operands onto buf and returns the
// extended slice. The number of operands supplied must match the opcode's
// arity.
func Append(buf []byte, op Op, operands ...int) []byte {
	if n := arity(op); n != len(operands) {
		panic(fmt.Sprintf("bytecode: %v expects %d operands, got %d", op, n, len(operands)))
	}
	buf = append(buf, byte(op))
	for _, operand := range operands {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(operand))
		buf = append(buf, tmp[:]...)
	}
	return buf
}

// PatchOperand overwrites the i'th operand of the instruction encoded at
// pos (the opcode's own position). Used to back-patch forward jump targets.
func PatchOperand(code []byte, pos, i, value int) {
	off := pos + 1 + 4*i
	binary.LittleEndian.PutUint32(code[off:off+4], uint32(value))
}

// Decode reads one instruction starting at pos and returns it along with
// the position of the next instruction.
func Decode(code []byte, pos int) (Instruction, int, error) {
	if pos < 0 || pos >= len(code) {
		return Instruction{}, pos, fmt.Errorf("bytecode: position %d out of range (len %d)", pos, len(code))
	}
	op := Op(code[pos])
	pos++
	n := arity(op)
	operands := make([]int, n)
	for i := 0; i < n; i++ {
		if pos+4 > len(code) {
			return Instruction{}, pos, fmt.Errorf("bytecode: truncated operand for %v at %d", op, pos)
		}
		operands[i] = int(binary.LittleEndian.Uint32(code[pos : pos+4]))
		pos += 4
	}
	return Instruction{Op: op, Operands: operands}, pos, nil
}

// Len returns the number of instructions encoded between [start, end).
func Len(code []byte, start, end int) int {
	count := 0
	for pos := start; pos < end; {
		_, next, err := Decode(code, pos)
		if err != nil {
			break
		}
		pos = next
		count++
	}
	return count
}
