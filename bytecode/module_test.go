package bytecode_test

import (
	"testing"

	"asc.im/mania"
	"asc.im/mania/bytecode"
)

func TestModuleRoundTrip(t *testing.T) {
	var code []byte
	code = bytecode.Append(code, bytecode.LoadConstant, 1)
	code = bytecode.Append(code, bytecode.LoadConstant, 2)
	code = bytecode.Append(code, bytecode.Add)
	code = bytecode.Append(code, bytecode.Return)

	m := mania.NewModule(mania.MakeSymbol("arith"), 0, []mania.Object{
		mania.MakeInteger(40),
		mania.MakeInteger(2),
	}, code)

	data, err := bytecode.DumpModule(m)
	if err != nil {
		t.Fatal(err)
	}
	got, err := bytecode.LoadModule(data)
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Constants) != len(m.Constants) {
		t.Fatalf("constant count mismatch: got %d want %d", len(got.Constants), len(m.Constants))
	}
	for i, c := range m.Constants {
		if !got.Constants[i].IsEqual(c) {
			t.Errorf("constant %d: got %v want %v", i, got.Constants[i], c)
		}
	}

	wantLen := bytecode.Len(m.Instructions, 0, len(m.Instructions))
	gotLen := bytecode.Len(got.Instructions, 0, len(got.Instructions))
	if gotLen != wantLen {
		t.Fatalf("instruction count mismatch: got %d want %d", gotLen, wantLen)
	}

	for pos, gpos := 0, 0; pos < len(m.Instructions); {
		wantInstr, nextWant, err := bytecode.Decode(m.Instructions, pos)
		if err != nil {
			t.Fatal(err)
		}
		gotInstr, nextGot, err := bytecode.Decode(got.Instructions, gpos)
		if err != nil {
			t.Fatal(err)
		}
		if wantInstr.Op != gotInstr.Op || len(wantInstr.Operands) != len(gotInstr.Operands) {
			t.Fatalf("instruction mismatch at %d: got %v want %v", pos, gotInstr, wantInstr)
		}
		for i := range wantInstr.Operands {
			if wantInstr.Operands[i] != gotInstr.Operands[i] {
				t.Errorf("operand %d at %d: got %d want %d", i, pos, gotInstr.Operands[i], wantInstr.Operands[i])
			}
		}
		pos, gpos = nextWant, nextGot
	}
}
