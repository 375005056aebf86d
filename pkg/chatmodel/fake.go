package chatmodel

import "context"

// FakeUser is an in-memory User used by tests.
type FakeUser struct {
	IDValue   string
	Name      string
	MentionAs string
}

func (u *FakeUser) ID() string          { return u.IDValue }
func (u *FakeUser) DisplayName() string { return u.Name }
func (u *FakeUser) Mention() string {
	if u.MentionAs != "" {
		return u.MentionAs
	}
	return "@" + u.Name
}

// FakeChannel is an in-memory Channel that records every Send/Delete call.
type FakeChannel struct {
	IDValue  string
	Guild    string
	Sent     []string
	Deleted  []string
	nextID   int
}

func (c *FakeChannel) ID() string      { return c.IDValue }
func (c *FakeChannel) GuildID() string { return c.Guild }

func (c *FakeChannel) Send(ctx context.Context, content string) (string, error) {
	c.nextID++
	c.Sent = append(c.Sent, content)
	return itoa(c.nextID), nil
}

func (c *FakeChannel) Delete(ctx context.Context, messageID string) error {
	c.Deleted = append(c.Deleted, messageID)
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// FakeGuild is an in-memory Guild with a static role map.
type FakeGuild struct {
	IDValue string
	Roles   map[string][]string // userID -> role ids
}

func (g *FakeGuild) ID() string { return g.IDValue }
func (g *FakeGuild) RolesOf(userID string) []string {
	return g.Roles[userID]
}

// FakeEvent is an in-memory Event for dispatcher tests.
type FakeEvent struct {
	AuthorUser   *FakeUser
	ChannelValue *FakeChannel
	GuildValue   *FakeGuild
	ContentValue string
	MentionUsers []User
}

func (e *FakeEvent) Author() User      { return e.AuthorUser }
func (e *FakeEvent) Channel() Channel  { return e.ChannelValue }
func (e *FakeEvent) Guild() Guild      { return e.GuildValue }
func (e *FakeEvent) Content() string   { return e.ContentValue }
func (e *FakeEvent) Mentions() []User  { return e.MentionUsers }
