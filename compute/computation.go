package compute

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Computation runs an ordered set of modules through one context.
type Computation struct {
	mu      sync.Mutex
	ctx     *Context
	modules []Module
}

// NewComputation returns an empty computation bound to ctx.
func NewComputation(ctx *Context) *Computation {
	return &Computation{ctx: ctx}
}

// Context returns the context modules are launched through.
func (c *Computation) Context() *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

// SetContext replaces the launch context.
func (c *Computation) SetContext(ctx *Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
}

// sameModule reports whether a and b are the same module. Modules of an
// uncomparable type are never equal to anything.
func sameModule(a, b Module) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

// AddModule appends m. Adding the same module twice is a no-op; modules of
// an uncomparable type are always appended.
func (c *Computation) AddModule(m Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, have := range c.modules {
		if sameModule(have, m) {
			return
		}
	}
	c.modules = append(c.modules, m)
}

// RemoveModule removes m and reports whether it was present. Modules of an
// uncomparable type cannot be found and are only dropped by Clear.
func (c *Computation) RemoveModule(m Module) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, have := range c.modules {
		if sameModule(have, m) {
			c.modules = append(c.modules[:i], c.modules[i+1:]...)
			return true
		}
	}
	return false
}

// Modules returns the modules in launch order.
func (c *Computation) Modules() []Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Module(nil), c.modules...)
}

// Init initializes every module and joins their errors.
func (c *Computation) Init() error {
	var errs []error
	for _, m := range c.Modules() {
		if err := m.Init(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Launch launches the modules in order and stops at the first failure.
func (c *Computation) Launch() error {
	ctx := c.Context()
	if ctx == nil {
		return fmt.Errorf("computation: %w", ErrContextNotInitialized)
	}
	for _, m := range c.Modules() {
		if err := m.Launch(ctx); err != nil {
			return fmt.Errorf("computation: %w", err)
		}
	}
	return nil
}

// Clear clears every module and empties the computation.
func (c *Computation) Clear() {
	c.mu.Lock()
	mods := c.modules
	c.modules = nil
	c.mu.Unlock()
	for _, m := range mods {
		m.Clear()
	}
}
