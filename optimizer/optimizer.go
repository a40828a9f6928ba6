// Package optimizer rewrites method bodies in place: peephole branch
// cleanup, dead code removal and inlining of small callees, applied until
// no pass finds anything left to do.
package optimizer

import (
	"github.com/pkg/errors"
	"github.com/tliron/commonlog"

	"github.com/chazu/inliner/il"
)

// ---------------------------------------------------------------------------
// Method state
// ---------------------------------------------------------------------------

// State is the progress of one method through an optimizer run.
type State uint8

const (
	NotVisited State = iota
	InProgress
	Done
)

func (s State) String() string {
	switch s {
	case NotVisited:
		return "not-visited"
	case InProgress:
		return "in-progress"
	case Done:
		return "done"
	}
	return "unknown"
}

// Resolver maps call operands to method definitions. *il.Assembly
// satisfies it.
type Resolver interface {
	Resolve(ref *il.MethodRef) *il.Method
}

// ---------------------------------------------------------------------------
// Optimizer: the fixed-point driver
// ---------------------------------------------------------------------------

// Optimizer applies a fixed list of passes to method bodies. It remembers
// which methods it has visited so recursive inlining terminates; that
// memory lives as long as the Optimizer value, which is one run.
type Optimizer struct {
	resolver Resolver
	passes   []Pass
	states   map[*il.Method]State
	budget   int
	stats    Stats
	log      commonlog.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithInlineBudget caps the number of calls inlined into any one method.
// Zero means no cap.
func WithInlineBudget(n int) Option {
	return func(o *Optimizer) { o.budget = n }
}

// WithLogger replaces the default logger.
func WithLogger(l commonlog.Logger) Option {
	return func(o *Optimizer) { o.log = l }
}

// New creates an optimizer applying passes, in order, with calls resolved
// through resolver.
func New(resolver Resolver, passes []Pass, opts ...Option) *Optimizer {
	o := &Optimizer{
		resolver: resolver,
		passes:   passes,
		states:   make(map[*il.Method]State),
		stats:    Stats{Passes: make(map[string]int)},
		log:      commonlog.GetLogger("inliner.optimizer"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns how far m has progressed in this run.
func (o *Optimizer) State(m *il.Method) State {
	return o.states[m]
}

// Stats returns counters accumulated so far.
func (o *Optimizer) Stats() Stats {
	return o.stats.clone()
}

// Run optimizes every method of the assembly.
func (o *Optimizer) Run(asm *il.Assembly) error {
	o.stats.InstructionsBefore += asm.InstructionCount()
	if err := asm.ForEachMethod(o.Optimize); err != nil {
		return err
	}
	o.stats.InstructionsAfter += asm.InstructionCount()
	o.log.Infof("optimized %s: %d methods, %d calls inlined, %d -> %d instructions",
		asm.Name, o.stats.Methods, o.stats.Inlined, o.stats.InstructionsBefore, o.stats.InstructionsAfter)
	return nil
}

// Optimize rewrites m's body to a fixed point. Methods already visited in
// this run, including ones still in progress further up the stack, are
// left alone.
func (o *Optimizer) Optimize(m *il.Method) error {
	if m == nil {
		return errors.Wrap(ErrInvalidArgument, "optimize nil method")
	}
	if o.states[m] != NotVisited {
		return nil
	}
	o.states[m] = InProgress

	if !m.HasBody() || m.Body().Empty() {
		o.states[m] = Done
		return nil
	}

	before := m.Body().Len()
	w := newWorker(o, m)
	if err := o.visit(w); err != nil {
		return errors.Wrapf(err, "optimize %s", m.FullName())
	}
	o.states[m] = Done
	o.stats.Methods++
	if after := m.Body().Len(); after != before {
		o.log.Debugf("%s: %d -> %d instructions", m.FullName(), before, after)
	}
	return nil
}

// visit scans the body repeatedly until a full scan fires no pass.
func (o *Optimizer) visit(w *Worker) error {
	for {
		changed := false
		w.reset()
		for w.advance() {
			fired, err := o.offer(w)
			if err != nil {
				return err
			}
			if fired {
				changed = true
				w.rewind()
			}
		}
		if !changed {
			return nil
		}
	}
}

// offer hands the worker's target to each pass in order and stops at the
// first one that rewrites something.
func (o *Optimizer) offer(w *Worker) (bool, error) {
	for _, p := range o.passes {
		target := w.TargetInstruction()
		if err := p.Apply(w); err != nil {
			return false, errors.Wrapf(err, "%s at %s", p.Name(), target)
		}
		if w.takeDirty() {
			o.stats.record(p.Name())
			return true, nil
		}
	}
	return false, nil
}
