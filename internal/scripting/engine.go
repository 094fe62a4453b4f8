package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM running gamemode hook scripts.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script under
// scriptsDir/gamemode. A missing directory yields an engine with no hooks.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(filepath.Join(scriptsDir, "gamemode")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load gamemode scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasHook reports whether a global function with the given name exists.
func (e *Engine) HasHook(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// FilterName passes a requested player name through filter_name. Without
// the hook, or when it fails, the name is returned unchanged.
func (e *Engine) FilterName(name string) string {
	ret, ok := e.call("filter_name", lua.LString(name))
	if !ok {
		return name
	}
	s, isStr := ret.(lua.LString)
	if !isStr {
		e.log.Warn("filter_name returned a non-string", zap.String("type", ret.Type().String()))
		return name
	}
	return string(s)
}

// DecayInput describes the cell whose decay rate is being asked for.
type DecayInput struct {
	Size       float64
	OwnerCells int
	Team       int
	Tick       uint64
	Base       float64
}

// DecayMult asks decay_mult for a player cell's decay multiplier. Without
// the hook, or when it fails, in.Base is returned.
func (e *Engine) DecayMult(in DecayInput) float64 {
	if !e.HasHook("decay_mult") {
		return in.Base
	}
	t := e.vm.NewTable()
	t.RawSetString("size", lua.LNumber(in.Size))
	t.RawSetString("owner_cells", lua.LNumber(in.OwnerCells))
	t.RawSetString("team", lua.LNumber(in.Team))
	t.RawSetString("tick", lua.LNumber(in.Tick))
	t.RawSetString("base", lua.LNumber(in.Base))
	ret, ok := e.call("decay_mult", t)
	if !ok {
		return in.Base
	}
	n, isNum := ret.(lua.LNumber)
	if !isNum || n < 0 {
		return in.Base
	}
	return float64(n)
}

// call invokes a global function with one result. ok is false when the
// function is missing or raised an error.
func (e *Engine) call(name string, args ...lua.LValue) (lua.LValue, bool) {
	fn, isFn := e.vm.GetGlobal(name).(*lua.LFunction)
	if !isFn {
		return lua.LNil, false
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return lua.LNil, false
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return result, true
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
