package vm

// Stack is the operand stack. It grows without bound.
type Stack struct {
	items []Immediate
}

// Push puts v on top of the stack.
func (s *Stack) Push(v Immediate) {
	s.items = append(s.items, v)
}

// Pop removes and returns the top value.
func (s *Stack) Pop() (Immediate, error) {
	n := len(s.items)
	if n == 0 {
		return Immediate{}, ErrStackUnderflow
	}
	v := s.items[n-1]
	s.items = s.items[:n-1]
	return v, nil
}

// Len returns the number of values on the stack.
func (s *Stack) Len() int { return len(s.items) }

// Values returns a copy of the stack, bottom first.
func (s *Stack) Values() []Immediate {
	out := make([]Immediate, len(s.items))
	copy(out, s.items)
	return out
}
