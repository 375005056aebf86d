// Package log provides cogbot's structured logging on top of zerolog.
//
// A single global Logger is configured once via Init and components take
// a child logger with WithComponent/WithGuildID/WithUserID/WithDocumentID
// rather than passing a logger through every constructor.
package log
