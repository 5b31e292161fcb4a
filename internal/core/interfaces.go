package core

import (
	"context"

	"github.com/dkeye/voicehub/internal/domain"
)

// ConnID is the opaque handle of one open realtime connection.
// A user may hold several (devices, tabs).
type ConnID string

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/dkeye/voicehub/internal/core Deliverer,ChatDirectory

// Deliverer is the realtime delivery primitive.
// SendToConnection must not block on the network; it enqueues or fails fast.
type Deliverer interface {
	SendToConnection(conn ConnID, event string, payload any) error
	// CloseConnection drops a lagging or displaced connection; the transport
	// then runs the regular disconnect path.
	CloseConnection(conn ConnID)
}

// ChatDirectory is the chat-membership collaborator owned by the chat product.
type ChatDirectory interface {
	IsUserMemberOfChat(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error)
	ResolveChatMembers(ctx context.Context, chatID domain.ChatID) ([]domain.UserID, error)
	// ResolveContacts lists users that watch userID's presence (friends).
	ResolveContacts(ctx context.Context, userID domain.UserID) ([]domain.UserID, error)
}
