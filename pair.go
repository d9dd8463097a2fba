package mania

import (
	"fmt"
	"io"
	"iter"
	"strings"
)

// Pair is a cons cell: a node with a head (car) and a tail (cdr). A list is
// a chain of Pairs ending in Nil; a dotted pair is a Pair whose tail is
// neither a Pair nor Nil.
type Pair struct {
	car Object
	cdr Object
}

// Nil returns the empty list.
func Nil() *Pair { return (*Pair)(nil) }

// Cons creates a new pair.
func Cons(car, cdr Object) *Pair { return &Pair{car: car, cdr: cdr} }

// Cons prepends obj in front of pair, returning the new list.
func (pair *Pair) Cons(obj Object) *Pair { return &Pair{car: obj, cdr: pair} }

// MakeList builds a proper list from the given objects.
func MakeList(objs ...Object) *Pair {
	var lb ListBuilder
	lb.AddN(objs...)
	return lb.List()
}

// IsNil reports whether pair is the empty list.
func (pair *Pair) IsNil() bool { return pair == nil }

// IsAtom reports whether pair is atomic; only the empty list is.
func (pair *Pair) IsAtom() bool { return pair == nil }

// IsEqual compares two pair chains structurally, element by element.
func (pair *Pair) IsEqual(other Object) bool {
	if pair == other {
		return true
	}
	if pair.IsNil() {
		return IsNil(other)
	}
	otherPair, ok := other.(*Pair)
	if !ok {
		return false
	}
	node, otherNode := pair, otherPair
	for node != nil && otherNode != nil {
		if !node.Car().IsEqual(otherNode.Car()) {
			return false
		}
		cdr, otherCdr := node.Cdr(), otherNode.Cdr()
		next, isPair := GetPair(cdr)
		otherNext, otherIsPair := GetPair(otherCdr)
		if !isPair || !otherIsPair {
			return cdr.IsEqual(otherCdr)
		}
		node, otherNode = next, otherNext
	}
	return node == otherNode
}

// String returns the canonical s-expression representation.
func (pair *Pair) String() string {
	var sb strings.Builder
	_, _ = pair.Print(&sb)
	return sb.String()
}

// Print writes the canonical representation to w: "(a b c)" for a proper
// list, "(a . b)" for a dotted pair.
func (pair *Pair) Print(w io.Writer) (int, error) {
	if pair == nil {
		return io.WriteString(w, "()")
	}
	total, err := io.WriteString(w, "(")
	if err != nil {
		return total, err
	}
	for node := pair; ; {
		if node != pair {
			n, err := io.WriteString(w, " ")
			total += n
			if err != nil {
				return total, err
			}
		}
		n, err := Print(w, node.car)
		total += n
		if err != nil {
			return total, err
		}
		cdr := node.cdr
		if IsNil(cdr) {
			break
		}
		next, ok := cdr.(*Pair)
		if ok {
			node = next
			continue
		}
		n, err = io.WriteString(w, " . ")
		total += n
		if err != nil {
			return total, err
		}
		n, err = Print(w, cdr)
		total += n
		if err != nil {
			return total, err
		}
		break
	}
	n, err := io.WriteString(w, ")")
	total += n
	return total, err
}

// GetPair returns obj as a pair, if possible. Nil is always a pair (the
// empty list).
func GetPair(obj Object) (*Pair, bool) {
	if IsNil(obj) {
		return nil, true
	}
	lst, ok := obj.(*Pair)
	return lst, ok
}

// IsList reports whether obj is a proper, Nil-terminated list.
func IsList(obj Object) bool {
	pair, isPair := GetPair(obj)
	if !isPair {
		return false
	}
	for node := pair; node != nil; {
		next, isPair2 := GetPair(node.cdr)
		if !isPair2 {
			return false
		}
		node = next
	}
	return true
}

// Car returns the first element of pair, or Nil if pair is empty.
func (pair *Pair) Car() Object {
	if pair == nil {
		return Nil()
	}
	return pair.car
}

// Cdr returns the tail of pair, or Nil if pair is empty.
func (pair *Pair) Cdr() Object {
	if pair == nil {
		return Nil()
	}
	return pair.cdr
}

// SetCar replaces the head of pair.
func (pair *Pair) SetCar(obj Object) {
	if pair != nil {
		pair.car = obj
	}
}

// SetCdr replaces the tail of pair.
func (pair *Pair) SetCdr(obj Object) {
	if pair != nil {
		pair.cdr = obj
	}
}

// Head returns the first element as a pair, if it is one.
func (pair *Pair) Head() *Pair {
	if pair != nil {
		if head, ok := pair.car.(*Pair); ok {
			return head
		}
	}
	return nil
}

// Tail returns the tail as a pair, if it is one.
func (pair *Pair) Tail() *Pair {
	if pair != nil {
		if tail, ok := pair.cdr.(*Pair); ok {
			return tail
		}
	}
	return nil
}

// Length returns the number of elements in the list. The list must not be
// circular.
func (pair *Pair) Length() int {
	n := 0
	for range pair.Values() {
		n++
	}
	return n
}

// LengthEqual reports whether the list has exactly n elements, without
// necessarily walking the whole list when it doesn't.
func (pair *Pair) LengthEqual(n int) bool {
	count := 0
	for range pair.Values() {
		count++
		if count > n {
			return false
		}
	}
	return count == n
}

// Nth returns the n'th element (0-based) of the list.
func (pair *Pair) Nth(n int) (Object, error) {
	if n < 0 {
		return Nil(), fmt.Errorf("negative index %d", n)
	}
	i := 0
	for val := range pair.Values() {
		if i == n {
			return val, nil
		}
		i++
	}
	return Nil(), fmt.Errorf("index %d out of range for %v", n, pair)
}

// Last returns the final element of a proper, non-empty list.
func (pair *Pair) Last() (Object, error) {
	if pair == nil {
		return nil, ErrImproper{Pair: pair}
	}
	for node := pair; ; {
		next, isPair := GetPair(node.cdr)
		if !isPair {
			return nil, ErrImproper{Pair: pair}
		}
		if next == nil {
			return node.car, nil
		}
		node = next
	}
}

// LastPair returns the final pair node of the list.
func (pair *Pair) LastPair() *Pair {
	if pair == nil {
		return nil
	}
	elem := pair
	for {
		next, ok := elem.cdr.(*Pair)
		if !ok || next == nil {
			return elem
		}
		elem = next
	}
}

// Reverse returns a newly built reversal of the list.
func (pair *Pair) Reverse() (*Pair, error) {
	result := Nil()
	for node := pair; node != nil; {
		result = result.Cons(node.Car())
		cdr := node.Cdr()
		if IsNil(cdr) {
			return result, nil
		}
		next, isPair := GetPair(cdr)
		if !isPair {
			return nil, ErrImproper{Pair: pair}
		}
		node = next
	}
	return result, nil
}

// Values iterates over the elements of the list in order.
func (pair *Pair) Values() iter.Seq[Object] {
	return func(yield func(Object) bool) {
		for node := pair; node != nil; node = node.Tail() {
			if !yield(node.car) {
				return
			}
		}
	}
}

// Pairs iterates over the pair nodes of the list in order.
func (pair *Pair) Pairs() iter.Seq[*Pair] {
	return func(yield func(*Pair) bool) {
		for node := pair; node != nil; node = node.Tail() {
			if !yield(node) {
				return
			}
		}
	}
}

// ToSlice collects the list's elements into a slice.
func (pair *Pair) ToSlice() []Object {
	out := make([]Object, 0, pair.Length())
	for val := range pair.Values() {
		out = append(out, val)
	}
	return out
}

// FromSlice builds a proper list from a slice; the left inverse of ToSlice.
func FromSlice(objs []Object) *Pair { return MakeList(objs...) }

// ListBuilder appends elements to a list in O(1) per append.
type ListBuilder struct {
	first, last *Pair
}

// Add appends a single object.
func (lb *ListBuilder) Add(obj Object) {
	elem := Cons(obj, nil)
	if lb.first == nil {
		lb.first, lb.last = elem, elem
		return
	}
	lb.last.cdr = elem
	lb.last = elem
}

// AddN appends multiple objects.
func (lb *ListBuilder) AddN(objs ...Object) {
	for _, obj := range objs {
		lb.Add(obj)
	}
}

// List returns the list built so far.
func (lb *ListBuilder) List() *Pair { return lb.first }

// IsEmpty reports whether nothing has been added yet.
func (lb *ListBuilder) IsEmpty() bool { return lb.first == nil }
