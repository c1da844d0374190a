// Package script turns Lua event scripts into timed synth events.
//
// A script drives a cursor on the logical time axis:
//
//	note_on(60)          -- press middle C now, velocity 100
//	note(64, 0.5, 90)    -- press E4 now, release it 0.5s later
//	wait(0.25)           -- advance the cursor
//	cc(74, 127)          -- controller change now
//	note_off(60)
//	print(now())
package script

import (
	"context"
	"math"
	"os"
	"slices"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"

	"github.com/cwbudde/algo-polysynth/synth"
)

// MaxEvents bounds the number of events a single script may emit.
const MaxEvents = 1 << 20

const defaultVelocity = 100

type recorder struct {
	now      float64
	seq      []synth.TimedEvent
	overflow bool
}

func (r *recorder) add(at float64, ev synth.Event) bool {
	if len(r.seq) >= MaxEvents {
		r.overflow = true
		return false
	}
	r.seq = append(r.seq, synth.TimedEvent{At: at, Event: ev})
	return true
}

// Run executes src and returns its events sorted by time. Events with equal
// times keep their emission order.
func Run(ctx context.Context, src string) ([]synth.TimedEvent, error) {
	return run(ctx, func(L *lua.LState) error { return L.DoString(src) })
}

// Load executes the script file at path.
func Load(ctx context.Context, path string) ([]synth.TimedEvent, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	events, err := run(ctx, func(L *lua.LState) error { return L.DoFile(path) })
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return events, nil
}

func run(ctx context.Context, exec func(*lua.LState) error) ([]synth.TimedEvent, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	if ctx != nil {
		L.SetContext(ctx)
	}

	rec := &recorder{}
	register(L, rec)
	if err := exec(L); err != nil {
		return nil, errors.Wrap(err, "lua")
	}
	if rec.overflow {
		return nil, errors.Errorf("script emitted more than %d events", MaxEvents)
	}
	slices.SortStableFunc(rec.seq, func(a, b synth.TimedEvent) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})
	return rec.seq, nil
}

func register(L *lua.LState, rec *recorder) {
	L.SetGlobal("note_on", L.NewFunction(func(L *lua.LState) int {
		n := checkNote(L, 1)
		vel := checkRange(L, 2, defaultVelocity, 1)
		rec.add(rec.now, synth.NoteOn{Note: n, Velocity: vel})
		return 0
	}))
	L.SetGlobal("note_off", L.NewFunction(func(L *lua.LState) int {
		n := checkNote(L, 1)
		rec.add(rec.now, synth.NoteOff{Note: n})
		return 0
	}))
	L.SetGlobal("cc", L.NewFunction(func(L *lua.LState) int {
		id := checkRange(L, 1, -1, 0)
		v := checkRange(L, 2, -1, 0)
		rec.add(rec.now, synth.ControlChange{Controller: id, Value: v})
		return 0
	}))
	L.SetGlobal("wait", L.NewFunction(func(L *lua.LState) int {
		rec.now += checkSeconds(L, 1)
		return 0
	}))
	L.SetGlobal("note", L.NewFunction(func(L *lua.LState) int {
		n := checkNote(L, 1)
		dur := checkSeconds(L, 2)
		vel := checkRange(L, 3, defaultVelocity, 1)
		rec.add(rec.now, synth.NoteOn{Note: n, Velocity: vel})
		rec.add(rec.now+dur, synth.NoteOff{Note: n})
		return 0
	}))
	L.SetGlobal("now", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(rec.now))
		return 1
	}))
}

func checkNote(L *lua.LState, idx int) synth.Note {
	n := synth.Note(L.CheckInt(idx))
	if !n.Valid() {
		L.ArgError(idx, "note must be in 0..127")
	}
	return n
}

// checkRange reads an integer argument in lo..127. A negative def makes the
// argument required.
func checkRange(L *lua.LState, idx int, def int, lo int) int {
	var v int
	if def < 0 {
		v = L.CheckInt(idx)
	} else {
		v = L.OptInt(idx, def)
	}
	if v < lo || v > synth.MaxControllerValue {
		L.ArgError(idx, "value out of range")
	}
	return v
}

func checkSeconds(L *lua.LState, idx int) float64 {
	s := float64(L.CheckNumber(idx))
	if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		L.ArgError(idx, "seconds must be >= 0 and finite")
	}
	return s
}
