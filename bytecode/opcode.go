// Package bytecode defines Mania's stack-machine instruction set and the
// binary module ("bam") codec. Instructions are variable-width records
// beginning with a one-byte opcode; operands are little-endian.
package bytecode

// Op is a single instruction opcode.
type Op byte

const (
	Nop       Op = iota // no operation
	Duplicate           // Duplicate(n): duplicate the n'th-from-top operand
	Rotate              // Rotate(n): rotate the top n operands
	Pop                 // Pop(n): discard the top n operands

	Store        // Store(const_idx): pop value, bind to constants[idx] in current scope
	Load         // Load(const_idx): push value bound to constants[idx]
	LoadField    // LoadField(const_idx): push field constants[idx] of top-of-stack
	LoadConstant // LoadConstant(const_idx): push constants[idx] unevaluated
	LoadCode     // LoadCode(entry, size): push Code(current_module, entry, size)
	LoadModule   // LoadModule(const_idx): push the named module, suspending if only registered

	Negate
	Add
	Sub
	Mul
	Div
	Pow
	Mod
	Rem
	Round
	Floor
	Ceil
	BitNot
	BitAnd
	BitOr
	BitXor
	BitShiftLeft
	BitShiftRight
	LogicNot
	LogicAnd
	LogicOr
	LogicXor
	Type
	Equal
	NotEqual
	Greater
	GreaterEqual
	Less
	LessEqual

	Jump          // Jump(pos)
	JumpIfNil     // JumpIfNil(pos)
	JumpIfTrue    // JumpIfTrue(pos)
	JumpIfFalse   // JumpIfFalse(pos)
	JumpIfEmpty   // JumpIfEmpty(pos): jump if top-of-stack is the empty list
	JumpIfNotEmpty
	JumpIfSize    // JumpIfSize(size, pos): jump if top-of-stack list has length size
	Call          // Call(n): pop n args, pop callable, invoke
	Apply         // Apply(n): like Call, but last popped arg is a list spliced in
	Return        // pop TOS, restore parent frame, push value onto parent
	Throw         // pop an exception value, unwind to nearest SetupCatch
	SetupCatch    // push a catch handler at pos
	EndCatch      // pop the current catch handler
	Restore       // restore parent frame without moving a value

	Spawn   // spawn a new process running the popped Code
	Exit    // mark the current process EXITING, request reschedule
	Send    // pop message and pid, enqueue message on pid's mailbox
	Receive // dequeue a message from this process's mailbox, or suspend
	Block   // suspend this process until explicitly resumed
	Yield   // voluntarily give up the remaining tick budget

	Head
	Tail
	Reverse
	Unpack // pop a list, push its elements in order

	BuildPair
	BuildList         // BuildList(n): pop n operands, push a proper list
	BuildQuoted
	BuildQuasiquoted
	BuildUnquoted
	BuildFunction
	BuildMacro        // BuildMacro(n): pop n rules, pop name, push Macro
	BuildRule         // pop templates list and pattern, push Rule
	BuildPattern
	BuildTemplate     // BuildTemplate(n): pop n structure parts, push Template
	BuildContinuation
	BuildModule       // pop exports list and name, collect scope, register module

	Eval // pop an expression, interpret it as source
)

// opNames gives each opcode a stable textual name, used by disassembly and
// error messages. Keep in sync with the const block above.
var opNames = [...]string{
	Nop: "nop", Duplicate: "dup", Rotate: "rot", Pop: "pop",
	Store: "store", Load: "load", LoadField: "load-field", LoadConstant: "load-const",
	LoadCode: "load-code", LoadModule: "load-module",
	Negate: "neg", Add: "add", Sub: "sub", Mul: "mul", Div: "div", Pow: "pow",
	Mod: "mod", Rem: "rem", Round: "round", Floor: "floor", Ceil: "ceil",
	BitNot: "bit-not", BitAnd: "bit-and", BitOr: "bit-or", BitXor: "bit-xor",
	BitShiftLeft: "shl", BitShiftRight: "shr",
	LogicNot: "not", LogicAnd: "and", LogicOr: "or", LogicXor: "xor",
	Type: "type", Equal: "eq", NotEqual: "ne", Greater: "gt", GreaterEqual: "ge",
	Less: "lt", LessEqual: "le",
	Jump: "jump", JumpIfNil: "jump-if-nil", JumpIfTrue: "jump-if-true",
	JumpIfFalse: "jump-if-false", JumpIfEmpty: "jump-if-empty",
	JumpIfNotEmpty: "jump-if-not-empty", JumpIfSize: "jump-if-size",
	Call: "call", Apply: "apply", Return: "return", Throw: "throw",
	SetupCatch: "setup-catch", EndCatch: "end-catch", Restore: "restore",
	Spawn: "spawn", Exit: "exit", Send: "send", Receive: "receive",
	Block: "block", Yield: "yield",
	Head: "head", Tail: "tail", Reverse: "reverse", Unpack: "unpack",
	BuildPair: "build-pair", BuildList: "build-list", BuildQuoted: "build-quoted",
	BuildQuasiquoted: "build-quasiquoted", BuildUnquoted: "build-unquoted",
	BuildFunction: "build-function", BuildMacro: "build-macro", BuildRule: "build-rule",
	BuildPattern: "build-pattern", BuildTemplate: "build-template",
	BuildContinuation: "build-continuation", BuildModule: "build-module",
	Eval: "eval",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "op?"
}
