package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding optional formula overrides.
// Scripts may redefine melee damage, spell damage and the experience
// curve without a server rebuild; a missing function means the built-in
// Go formula applies. Handlers call in from session goroutines, so every
// call takes the VM mutex.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir.
// A missing directory is fine: all formulas stay built-in.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
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

// MeleeContext is the data handed to a melee_damage override.
type MeleeContext struct {
	AttackerLevel    int
	AttackerStrength int
	WeaponMaxHit     int
	BaseDamage       int // roll already made by the Go formula
	TargetDefense    int
	TargetLevel      int
}

// MeleeDamage calls Lua melee_damage(ctx) when defined. ok=false means
// no override exists and the caller keeps its own number.
func (e *Engine) MeleeDamage(ctx MeleeContext) (damage int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("melee_damage")
	if fn == lua.LNil {
		return 0, false
	}

	t := e.vm.NewTable()
	t.RawSetString("attacker_level", lua.LNumber(ctx.AttackerLevel))
	t.RawSetString("attacker_str", lua.LNumber(ctx.AttackerStrength))
	t.RawSetString("weapon_max_hit", lua.LNumber(ctx.WeaponMaxHit))
	t.RawSetString("base_damage", lua.LNumber(ctx.BaseDamage))
	t.RawSetString("target_defense", lua.LNumber(ctx.TargetDefense))
	t.RawSetString("target_level", lua.LNumber(ctx.TargetLevel))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua melee_damage error", zap.Error(err))
		return 0, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return int(lua.LVAsNumber(result)), true
}

// SpellContext is the data handed to a spell_damage override.
type SpellContext struct {
	SpellID      int
	BaseDamage   int
	CasterLevel  int
	CasterIntell int
	TargetLevel  int
}

// SpellDamage calls Lua spell_damage(ctx) when defined.
func (e *Engine) SpellDamage(ctx SpellContext) (damage int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("spell_damage")
	if fn == lua.LNil {
		return 0, false
	}

	t := e.vm.NewTable()
	t.RawSetString("spell_id", lua.LNumber(ctx.SpellID))
	t.RawSetString("base_damage", lua.LNumber(ctx.BaseDamage))
	t.RawSetString("caster_level", lua.LNumber(ctx.CasterLevel))
	t.RawSetString("caster_int", lua.LNumber(ctx.CasterIntell))
	t.RawSetString("target_level", lua.LNumber(ctx.TargetLevel))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua spell_damage error", zap.Error(err))
		return 0, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return int(lua.LVAsNumber(result)), true
}

// EluForLevel calls Lua elu_for_level(level) when defined; it overrides
// the experience needed to leave the given level.
func (e *Engine) EluForLevel(level int) (elu int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("elu_for_level")
	if fn == lua.LNil {
		return 0, false
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(level)); err != nil {
		e.log.Error("lua elu_for_level error", zap.Error(err))
		return 0, false
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return int(lua.LVAsNumber(result)), true
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
