package cpu

const (
	STACK_LIMIT = 12 // Maximum stack depth
)

// Stack is the fixed capacity return address stack.
type Stack struct {
	Data  [STACK_LIMIT]uint16
	Depth int
}

// Push a return address. Returns false, leaving the stack unchanged, when full.
func (s *Stack) Push(value uint16) (ok bool) {
	if s.Full() {
		return
	}

	s.Data[s.Depth] = value
	s.Depth++
	return true
}

// Pop a return address. Returns false when empty.
func (s *Stack) Pop() (value uint16, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.Depth--
		s.Data[s.Depth] = 0
	}
	return
}

func (s *Stack) Empty() bool {
	return s.Depth == 0
}

func (s *Stack) Full() bool {
	return s.Depth == STACK_LIMIT
}

func (s *Stack) Peek() (value uint16, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[s.Depth-1], true
}

func (s *Stack) Reset() {
	clear(s.Data[:])
	s.Depth = 0
}
