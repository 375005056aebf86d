// Package boterr defines cogbot's closed error taxonomy.
//
// Every error the dispatcher's outer frame needs to turn into a chat reply
// is one of these types; callers use errors.As to recover the structured
// fields (command name, needle, attempted range) rather than parsing
// messages.
package boterr

import "fmt"

// UserError covers bad command arguments: an out-of-range amount, more
// than one @mention, an unparseable flag.
type UserError struct {
	Command string
	Reason  string
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

// PermissionError is raised when a channel/role/admin gate rejects the
// invoker.
type PermissionError struct {
	Command string
	Reason  string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied for %s: %s", e.Command, e.Reason)
}

// NotFound is raised when a substring or exact lookup matched zero rows.
type NotFound struct {
	Entity string
	Needle string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("no %s matches %q", e.Entity, e.Needle)
}

// Ambiguous is raised when a substring lookup matched more than one row.
type Ambiguous struct {
	Entity  string
	Needle  string
	Matches []string
}

func (e *Ambiguous) Error() string {
	return fmt.Sprintf("%q matches more than one %s: %v", e.Needle, e.Entity, e.Matches)
}

// ValidationFail is raised when a storage-layer invariant is violated. It
// indicates a bug or a corrupt remote sheet; the dispatcher logs it at
// error level and tells the user to contact leadership.
type ValidationFail struct {
	Entity string
	Reason string
}

func (e *ValidationFail) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Entity, e.Reason)
}

// SheetParsingError is raised when a full scan fails to parse; the cache
// is left at its previous state.
type SheetParsingError struct {
	Document string
	Reason   string
}

func (e *SheetParsingError) Error() string {
	return fmt.Sprintf("failed to parse %s: %s", e.Document, e.Reason)
}

// RemoteError wraps an unreachable remote document or feed. Callers retry
// with backoff; on exhaustion the user gets a fixed "<Op> is temporarily
// unavailable" reply, without the wrapped error's text.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: temporarily unavailable: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// CriticalError wraps an unhandled panic or invariant break that the
// dispatcher recovered from; the process keeps running.
type CriticalError struct {
	Channel string
	Author  string
	Content string
	Err     error
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("unhandled error in channel %s from %s: %v", e.Channel, e.Author, e.Err)
}

func (e *CriticalError) Unwrap() error {
	return e.Err
}
