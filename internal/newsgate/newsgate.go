// Package newsgate hosts an optional WASM plugin implementing the
// news/calendar gate collaborator described in spec.md §4.4, adapted from
// the teacher's wazero-hosted strategy plugin loader
// (pkg/strategy/strategy_host.extension.go): same runtime-per-module
// isolation, WASI instantiation, and malloc/free calling convention for
// passing a symbol string across the module boundary, generalized from a
// full trading-strategy plugin down to a single yes/no predicate.
package newsgate

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/argoquant/dexterio/internal/playbook"
	"github.com/argoquant/dexterio/internal/types"
	"github.com/argoquant/dexterio/pkg/errors"
)

const isBlockedExport = "news_gate_is_blocked"

// Gate wraps one loaded WASM module exposing a news-blackout predicate.
// A module qualifies by exporting malloc, free, and news_gate_is_blocked
// (ptr, len, unix_ts) -> i32.
type Gate struct {
	runtime   wazero.Runtime
	module    api.Module
	isBlocked api.Function
	malloc    api.Function
	free      api.Function
}

// Load compiles and instantiates the WASM module at wasmPath, one runtime
// per Gate so concurrent runs never share module state.
func Load(ctx context.Context, wasmPath string) (*Gate, error) {
	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read news gate wasm module %s", wasmPath)
	}

	runtime := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to instantiate wasi", err)
	}

	code, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		runtime.Close(ctx)
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to compile news gate module", err)
	}

	moduleCfg := wazero.NewModuleConfig().WithStdout(io.Discard).WithStderr(io.Discard)

	mod, err := runtime.InstantiateModule(ctx, code, moduleCfg)
	if err != nil {
		runtime.Close(ctx)
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to instantiate news gate module", err)
	}

	isBlocked := mod.ExportedFunction(isBlockedExport)
	malloc := mod.ExportedFunction("malloc")
	free := mod.ExportedFunction("free")

	if isBlocked == nil || malloc == nil || free == nil {
		runtime.Close(ctx)
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"news gate module %s does not export %s/malloc/free", wasmPath, isBlockedExport)
	}

	return &Gate{runtime: runtime, module: mod, isBlocked: isBlocked, malloc: malloc, free: free}, nil
}

// IsBlocked calls into the module with the symbol and the bar timestamp
// (unix seconds) and reports whether the news gate blocks this instant.
func (g *Gate) IsBlocked(ctx context.Context, symbol string, ts time.Time) (bool, error) {
	data := []byte(symbol)

	mallocRes, err := g.malloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeUnknown, "news gate malloc failed", err)
	}

	ptr := uint32(mallocRes[0])
	defer g.free.Call(ctx, uint64(ptr))

	if !g.module.Memory().Write(ptr, data) {
		return false, errors.New(errors.ErrCodeUnknown, "news gate memory write out of range")
	}

	res, err := g.isBlocked.Call(ctx, uint64(ptr), uint64(len(data)), uint64(ts.Unix()))
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeUnknown, "news gate call failed", err)
	}

	if len(res) != 1 {
		return false, fmt.Errorf("news gate returned %d results, want 1", len(res))
	}

	return res[0] != 0, nil
}

// Close releases the module's runtime.
func (g *Gate) Close(ctx context.Context) error {
	return g.runtime.Close(ctx)
}

// AsPlaybookGate adapts Gate into the playbook.NewsGate collaborator type.
// A plugin call failure fails open (pass=true) rather than blocking every
// setup on a broken plugin.
func (g *Gate) AsPlaybookGate(ctx context.Context) playbook.NewsGate {
	return func(_ types.Playbook, state types.MarketState, ts time.Time) (bool, types.GateRejectReason) {
		blocked, err := g.IsBlocked(ctx, state.Symbol, ts)
		if err != nil || !blocked {
			return true, ""
		}

		return false, types.GateRejectNewsEventsDayTypeMismatch
	}
}
