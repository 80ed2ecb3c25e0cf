// Package config loads machine definitions from TOML files and supports
// live reload through a file watcher.
//
// A definition file declares the initial state and the transition rules:
//
//	initial = "green"
//
//	[[transitions]]
//	event = "slow"
//	from = "green"
//	to = "yellow"
//
// The source state "any" matches every current state. Guards cannot be
// expressed in TOML; attach them in code or through the lua package.
package config
