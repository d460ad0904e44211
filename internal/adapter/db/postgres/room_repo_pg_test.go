package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	t.Helper()
	u, err := NewUserRepoPG(db, zaptest.NewLogger(t)).Create(context.Background(), newUser(name+"@x.com"))
	require.NoError(t, err)
	return u.ID
}

func TestRoomRepoPG_ShareRoom(t *testing.T) {
	db := setupTestDB(t)
	rooms := NewRoomRepoPG(db, zaptest.NewLogger(t))
	ctx := context.Background()

	alice, bob, carol, dave := seedUser(t, db, "alice"), seedUser(t, db, "bob"), seedUser(t, db, "carol"), seedUser(t, db, "dave")

	kitchen, err := rooms.CreateRoom(ctx, "kitchen")
	require.NoError(t, err)
	garage, err := rooms.CreateRoom(ctx, "garage")
	require.NoError(t, err)

	require.NoError(t, rooms.AddMember(ctx, kitchen, alice))
	require.NoError(t, rooms.AddMember(ctx, kitchen, bob))
	require.NoError(t, rooms.AddMember(ctx, garage, bob))
	require.NoError(t, rooms.AddMember(ctx, garage, carol))

	tests := []struct {
		name           string
		caller, target uuid.UUID
		want           bool
	}{
		{"same room", alice, bob, true},
		{"symmetric", bob, alice, true},
		{"through second room", bob, carol, true},
		{"not transitive", alice, carol, false},
		{"self is own room-mate", alice, alice, true},
		{"caller without rooms", dave, alice, false},
		{"target without rooms", alice, dave, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rooms.ShareRoom(ctx, tt.caller, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoomRepoPG_AddMember_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	rooms := NewRoomRepoPG(db, zaptest.NewLogger(t))
	ctx := context.Background()

	room, err := rooms.CreateRoom(ctx, "lobby")
	require.NoError(t, err)
	member := seedUser(t, db, "member")

	require.NoError(t, rooms.AddMember(ctx, room, member))
	require.NoError(t, rooms.AddMember(ctx, room, member))
}
