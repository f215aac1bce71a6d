package plugins

import "errors"

// Registry errors.
var (
	// ErrInvalidCallback is returned when a callback is not a func taking a
	// context.Context first and returning a single error.
	ErrInvalidCallback = errors.New("invalid callback")

	// ErrNameRequired is returned when no name was given and none can be
	// inferred from the callback (closures have no usable symbol name).
	ErrNameRequired = errors.New("name required")

	// ErrConflictingHook is returned by RegisterLoop with waitUntilReady when
	// the loop already has a before-loop hook.
	ErrConflictingHook = errors.New("loop already has a before-loop hook")

	// ErrAlreadyBound is returned when a sub-plugin or placeholder is bound twice.
	ErrAlreadyBound = errors.New("already bound")

	// ErrUnbound is returned when accessing the bot of a plugin that was never
	// loaded, or the proxied fields of an unfinalized placeholder.
	ErrUnbound = errors.New("not bound")

	// ErrUnknownOption is returned when an autocompleter names an option the
	// command does not have.
	ErrUnknownOption = errors.New("unknown option")

	// ErrNotRegistered is returned by ParentPlugin for objects that were never
	// created through a plugin.
	ErrNotRegistered = errors.New("object does not belong to a plugin")

	// ErrNotGroup is returned when a qualified name walks through a command
	// that has no children.
	ErrNotGroup = errors.New("command is not a group")

	// ErrUnknownParent is returned when a placeholder's parent command cannot
	// be found while loading.
	ErrUnknownParent = errors.New("unknown parent command")

	// ErrArgumentMismatch is returned by Invoke when the supplied arguments do
	// not fit the callback's parameters.
	ErrArgumentMismatch = errors.New("argument mismatch")
)
