// Package lua binds machine hooks written as Lua functions.
//
// A script declares hooks as global functions whose names follow the
// dynamic binding syntax of the hook package:
//
//	function on_enter_yellow(e)
//	    print("entering " .. e.to .. " on " .. e.event)
//	end
//
//	function on_exit_locked(e)
//	    return e.data[1] == "secret" -- false vetoes the transition
//	end
//
// Bind evaluates a script and registers every such global on a machine. The
// hook receives one table argument with the fields event, from, to, and
// data. A hook returning false cancels the in-flight transition; any other
// return value, or none, lets it proceed.
//
// A Binder owns one Lua state and serializes all calls into it, so its
// hooks are safe to fire from several machines or goroutines.
package lua
