// Package midgard encodes scheduled shader programs into Midgard GPU
// machine code.
//
// The input is a fully scheduled program: instructions grouped into VLIW
// bundles, registers allocated, constants embedded. Encoding packs every
// bundle into the exact bit layout the hardware fetches:
//   - ALU bundles: control word, register words, vector and scalar bodies
//   - Load/store bundles: 128-bit records holding one or two operations
//   - Texture bundles: 128-bit words with helper-invocation flags
//
// The package provides a simple, high-level API. Lower-level access to the
// individual encoding stages lives in the emit package, and the hardware
// word layouts live in the isa package.
//
// Example usage:
//
//	prog, err := mir.Unmarshal(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	code, err := midgard.Encode(prog, midgard.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Independent programs can be encoded in parallel with EncodeAll.
package midgard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/midgard/cache"
	"github.com/gogpu/midgard/emit"
	"github.com/gogpu/midgard/mir"
)

// ErrNilProgram is returned when Encode is called without a program.
var ErrNilProgram = errors.New("nil program")

// Options configures encoding.
type Options struct {
	// Validate checks program-level invariants before encoding.
	Validate bool

	// Workers limits the number of programs EncodeAll encodes at once.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int

	// Logger overrides the package logger for this call's summary records.
	Logger *slog.Logger
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Validate: true,
	}
}

// Encode encodes p and returns its machine code.
//
// The pipeline is:
//  1. Validate program invariants (if enabled)
//  2. Emit every bundle in program order
func Encode(p *mir.Program, opts Options) ([]byte, error) {
	if p == nil {
		return nil, ErrNilProgram
	}

	if opts.Validate {
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
	}

	out := emit.NewBuffer(estimateSize(p))
	if err := emit.EmitProgram(p, out); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", programName(p), err)
	}

	logger(opts).Debug("encoded program",
		"program", programName(p),
		"stage", p.Stage,
		"bundles", len(p.Bundles),
		"bytes", out.Len())
	return out.Bytes(), nil
}

// EncodeAll encodes independent programs concurrently. Results are
// returned in input order. The first error cancels the remaining work and
// is returned; results are nil in that case.
func EncodeAll(ctx context.Context, programs []*mir.Program, opts Options) ([][]byte, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]byte, len(programs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range programs {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			code, err := Encode(p, opts)
			if err != nil {
				return fmt.Errorf("program %d: %w", i, err)
			}
			results[i] = code
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger(opts).Warn("parallel encoding failed", "programs", len(programs), "err", err)
		return nil, err
	}
	return results, nil
}

// EncodeCached is Encode backed by c. A hit returns the stored code
// without encoding; a miss encodes p and stores the result.
func EncodeCached(ctx context.Context, c *cache.Cache, p *mir.Program, opts Options) ([]byte, error) {
	if p == nil {
		return nil, ErrNilProgram
	}

	key, err := cache.Key(p)
	if err != nil {
		return nil, err
	}
	if code, ok, err := c.Get(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return code, nil
	}

	code, err := Encode(p, opts)
	if err != nil {
		return nil, err
	}
	if err := c.Put(ctx, key, programName(p), code); err != nil {
		return nil, err
	}
	return code, nil
}

// Validate checks the program-level invariants the encoder relies on:
// no nil bundles, and a declared texture count matching the number of
// texture bundles.
func Validate(p *mir.Program) error {
	if p == nil {
		return ErrNilProgram
	}
	for i, b := range p.Bundles {
		if b == nil {
			return fmt.Errorf("bundle %d: %w", i, emit.ErrUnknownBundleKind)
		}
	}
	if n := p.CountTextureOps(); n != p.TextureOps {
		return fmt.Errorf("%w: program declares %d texture ops, has %d", emit.ErrOutOfRange, p.TextureOps, n)
	}
	return nil
}

// estimateSize returns the encoded size of p assuming every bundle is one
// quadword. ALU bundles may be larger; the buffer grows as needed.
func estimateSize(p *mir.Program) int {
	return 16 * len(p.Bundles)
}

func programName(p *mir.Program) string {
	if p.Name == "" {
		return "<unnamed>"
	}
	return p.Name
}

func logger(opts Options) *slog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return Logger()
}
