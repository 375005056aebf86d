// Package chatmodel defines the chat-transport boundary cogbot consumes:
// guilds, channels, users, and the inbound message event, plus the minimal
// reply surface a handler needs. No concrete transport is implemented here
// — that capability is explicitly out of scope (spec.md §1).
package chatmodel

import "context"

// User is a chat-platform member.
type User interface {
	ID() string
	DisplayName() string
	Mention() string
}

// Role is a chat-platform role grantable to a User within a Guild.
type Role interface {
	ID() string
	Name() string
}

// Channel is a chat-platform text channel within a Guild.
type Channel interface {
	ID() string
	GuildID() string
	// Send posts content to the channel and returns the sent message's id.
	Send(ctx context.Context, content string) (string, error)
	// Delete removes a previously sent message, used to auto-expire
	// transient replies and prompts.
	Delete(ctx context.Context, messageID string) error
}

// Guild is a chat-platform server.
type Guild interface {
	ID() string
	// RolesOf returns the role ids held by userID within this guild.
	RolesOf(userID string) []string
}

// Event is an inbound chat message the dispatcher routes to a command
// handler.
type Event interface {
	Author() User
	Channel() Channel
	Guild() Guild
	Content() string
	// Mentions returns every user explicitly @-mentioned in Content, in
	// the order they appear.
	Mentions() []User
}
