package function

import (
	"context"
	"errors"

	"blockexpr/pkg/megabuf"
)

var (
	ErrNoHost        = errors.New("no expression is being evaluated")
	ErrNoEnvironment = errors.New("no environment available")
)

// Environment answers block queries for the world an expression runs in.
// Coordinates are absolute for BlockType/BlockData and the Abs variants
// (the latter must not load chunks) and relative to the placement position
// for the Rel variants.
type Environment interface {
	BlockType(x, y, z float64) float64
	BlockData(x, y, z float64) float64
	BlockTypeAbs(x, y, z float64) float64
	BlockDataAbs(x, y, z float64) float64
	BlockTypeRel(x, y, z float64) float64
	BlockDataRel(x, y, z float64) float64
}

// Host is the expression being evaluated, as seen by functions.
type Host interface {
	Megabuf() *megabuf.Buffer
	Environment() Environment
}

type hostKey struct{}

// WithHost pushes h on the evaluation stack carried by ctx. The entry is
// gone as soon as the returned context is.
func WithHost(ctx context.Context, h Host) context.Context {
	return context.WithValue(ctx, hostKey{}, h)
}

// HostFrom returns the innermost expression being evaluated.
func HostFrom(ctx context.Context) (Host, bool) {
	if ctx == nil {
		return nil, false
	}
	h, ok := ctx.Value(hostKey{}).(Host)
	return h, ok
}

func (c *Call) host() (Host, error) {
	h, ok := HostFrom(c.Ctx)
	if !ok {
		return nil, ErrNoHost
	}
	return h, nil
}

// callContext is the evaluation context of the call, never nil.
func (c *Call) callContext() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}
