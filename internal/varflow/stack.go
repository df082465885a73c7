package varflow

// varAllocator hands out fresh, never-repeated variables. Grounded on
// with_variables/incorporate_variables.rs's VariablesStack, whose
// equivalent counter is a single process-wide `static mut
// FREE_VAR_INDEX`. spec.md section 5 restricts this pipeline to a
// single cooperative thread, so a shared mutable counter is safe the
// way the original relies on it being -- this port just threads it
// explicitly instead of reaching for a package-level global.
type varAllocator struct {
	next int
}

func (a *varAllocator) new() Variable {
	v := Variable{Alias: a.next}
	a.next++
	return v
}

// variablesStack is the variable-level view of the EVM stack tracked
// while converting one function's scopes. depth 0 is always the top.
type variablesStack struct {
	vars  []Variable
	alloc *varAllocator
}

func newVariablesStack(alloc *varAllocator) variablesStack {
	return variablesStack{alloc: alloc}
}

func (s variablesStack) clone() variablesStack {
	cp := make([]Variable, len(s.vars))
	copy(cp, s.vars)
	return variablesStack{vars: cp, alloc: s.alloc}
}

func (s variablesStack) len() int { return len(s.vars) }

func (s *variablesStack) push(v Variable) { s.vars = append(s.vars, v) }

func (s *variablesStack) pop() Variable {
	v := s.vars[len(s.vars)-1]
	s.vars = s.vars[:len(s.vars)-1]
	return v
}

func (s *variablesStack) multiPop(n int) []Variable {
	out := make([]Variable, n)
	for i := 0; i < n; i++ {
		out[i] = s.pop()
	}
	return out
}

func (s variablesStack) peekAt(depth int) Variable {
	return s.vars[len(s.vars)-1-depth]
}

func (s *variablesStack) swap(depth int) {
	n := len(s.vars)
	s.vars[n-1], s.vars[n-1-depth] = s.vars[n-1-depth], s.vars[n-1]
}

func (s *variablesStack) createSingleVariable() Variable {
	return s.alloc.new()
}

func (s *variablesStack) createAndPushSingleVariable() Variable {
	v := s.createSingleVariable()
	s.push(v)
	return v
}

func (s *variablesStack) createAndPushVars(n int) []Variable {
	vars := make([]Variable, n)
	for i := range vars {
		vars[i] = s.createAndPushSingleVariable()
	}
	return vars
}
