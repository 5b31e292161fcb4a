package chatdir

import (
	"context"
	"testing"

	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ core.ChatDirectory = (*Memory)(nil)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(
		map[string][]string{"general": {"carol", "alice", "bob"}},
		map[string][]string{"alice": {"bob"}},
	)

	ok, err := m.IsUserMemberOfChat(ctx, "general", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = m.IsUserMemberOfChat(ctx, "general", "mallory")
	assert.False(t, ok)
	ok, _ = m.IsUserMemberOfChat(ctx, "unknown", "alice")
	assert.False(t, ok)

	members, err := m.ResolveChatMembers(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"alice", "bob", "carol"}, members)

	contacts, _ := m.ResolveContacts(ctx, "alice")
	assert.Equal(t, []domain.UserID{"bob"}, contacts)
	contacts, _ = m.ResolveContacts(ctx, "bob")
	assert.Empty(t, contacts)

	m.AddMember("dm", "alice")
	ok, _ = m.IsUserMemberOfChat(ctx, "dm", "alice")
	assert.True(t, ok)
}
