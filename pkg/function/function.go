// Package function holds the function registry of the expression language:
// overload descriptors, call-site resolution and the built-in functions.
package function

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"blockexpr/pkg/ast"
	"blockexpr/pkg/slot"
)

var (
	ErrUnknownFunction = errors.New("unknown function")
	ErrArity           = errors.New("wrong number of arguments")
	ErrNeedsVariable   = errors.New("argument must be a variable")
	ErrInvalidOverload = errors.New("invalid overload")
)

// ParamKind says how a call-site argument is passed to a function.
type ParamKind uint8

const (
	// Value arguments are evaluated and passed as numbers.
	Value ParamKind = iota
	// Variable arguments must be a bare identifier naming a Variable, which
	// the function may write.
	Variable
	// Slot arguments bind the slot of a bare identifier. Any other argument
	// is evaluated and wrapped in a Constant.
	Slot
)

func (k ParamKind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Slot:
		return "slot"
	default:
		return "value"
	}
}

// Arg is one evaluated argument. Slot is set for Variable and Slot
// parameters, and Value then holds the slot value at call time.
type Arg struct {
	Value float64
	Slot  *slot.Slot
}

// Call carries the arguments of one invocation. Ctx is the evaluation
// context, which gives access to the calling expression through HostFrom.
type Call struct {
	Ctx  context.Context
	Name string
	Args []Arg
}

func (c *Call) Value(i int) float64 { return c.Args[i].Value }

func (c *Call) Slot(i int) *slot.Slot { return c.Args[i].Slot }

// Len is the number of arguments.
func (c *Call) Len() int { return len(c.Args) }

type Func func(c *Call) (float64, error)

// Overload is one implementation registered under a function name. A
// variadic overload takes at least len(Params) arguments and repeats its
// last parameter kind. Pure overloads have no side effects and depend only
// on their arguments, so calls with constant arguments can be folded.
type Overload struct {
	Name     string
	Params   []ParamKind
	Variadic bool
	Pure     bool
	Fn       Func
}

// ParamKind is the kind of the i-th argument.
func (o *Overload) ParamKind(i int) ParamKind {
	if i >= len(o.Params) {
		return o.Params[len(o.Params)-1]
	}
	return o.Params[i]
}

// Accepts reports whether n arguments fit the overload's arity.
func (o *Overload) Accepts(n int) bool {
	if o.Variadic {
		return n >= len(o.Params)
	}
	return n == len(o.Params)
}

// Arity renders the accepted argument count, e.g. "2" or "3+".
func (o *Overload) Arity() string {
	s := strconv.Itoa(len(o.Params))
	if o.Variadic {
		s += "+"
	}
	return s
}

func (o *Overload) validate() error {
	switch {
	case o.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidOverload)
	case o.Fn == nil:
		return fmt.Errorf("%w: '%s' has no implementation", ErrInvalidOverload, o.Name)
	case o.Variadic && len(o.Params) == 0:
		return fmt.Errorf("%w: variadic '%s' needs at least one parameter", ErrInvalidOverload, o.Name)
	}
	return nil
}

// Builder collects overloads. Registries are only created through Build and
// never change afterwards.
type Builder struct {
	overloads []*Overload
	seen      map[string]bool
	errs      []error
}

func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]bool)}
}

// Extend starts a builder from the overloads of r.
func Extend(r *Registry) *Builder {
	b := NewBuilder()
	for _, name := range r.names {
		for _, o := range r.byName[name] {
			b.Add(*o)
		}
	}
	return b
}

func (b *Builder) Add(o Overload) *Builder {
	if err := o.validate(); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	o.Params = append([]ParamKind(nil), o.Params...)
	key := o.Name + "/" + o.Arity()
	if b.seen[key] {
		b.errs = append(b.errs, fmt.Errorf("%w: '%s' already has an overload taking %s arguments",
			ErrInvalidOverload, o.Name, o.Arity()))
		return b
	}
	b.seen[key] = true
	b.overloads = append(b.overloads, &o)
	return b
}

func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	r := &Registry{byName: make(map[string][]*Overload)}
	for _, o := range b.overloads {
		if _, ok := r.byName[o.Name]; !ok {
			r.names = append(r.names, o.Name)
		}
		r.byName[o.Name] = append(r.byName[o.Name], o)
	}
	sort.Strings(r.names)
	return r, nil
}

// MustBuild is Build for registries assembled from code; it panics on an
// invalid overload.
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// Registry maps function names to overloads. It is immutable and safe for
// concurrent use.
type Registry struct {
	byName map[string][]*Overload
	names  []string
}

func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Lookup returns the overloads of name in registration order.
func (r *Registry) Lookup(name string) []*Overload {
	return r.byName[name]
}

// Names returns all function names, sorted.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Resolve picks the first overload of name whose shape fits the call-site
// arguments.
func (r *Registry) Resolve(name string, args []ast.Expression) (*Overload, error) {
	overloads, ok := r.byName[name]
	if !ok {
		return nil, &resolveError{msg: fmt.Sprintf("unknown function '%s'", name), err: ErrUnknownFunction}
	}

	var varErr error
	for _, o := range overloads {
		if !o.Accepts(len(args)) {
			continue
		}
		if i := firstNonVariable(o, args); i >= 0 {
			if varErr == nil {
				varErr = &resolveError{
					msg: fmt.Sprintf("function '%s' requires a variable in parameter %d", name, i+1),
					err: ErrNeedsVariable,
				}
			}
			continue
		}
		return o, nil
	}
	if varErr != nil {
		return nil, varErr
	}

	arities := make([]string, len(overloads))
	for i, o := range overloads {
		arities[i] = o.Arity()
	}
	return nil, &resolveError{
		msg: fmt.Sprintf("function '%s' accepts %s arguments, got %d", name, strings.Join(arities, "/"), len(args)),
		err: ErrArity,
	}
}

// resolveError keeps the user-facing message free of the sentinel text.
type resolveError struct {
	msg string
	err error
}

func (e *resolveError) Error() string { return e.msg }
func (e *resolveError) Unwrap() error { return e.err }

func firstNonVariable(o *Overload, args []ast.Expression) int {
	for i, arg := range args {
		if o.ParamKind(i) != Variable {
			continue
		}
		if _, ok := arg.(*ast.Identifier); !ok {
			return i
		}
	}
	return -1
}
