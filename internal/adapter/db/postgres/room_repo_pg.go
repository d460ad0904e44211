package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomSchema is a room users can be members of.
type RoomSchema struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time
}

// TableName specifies the table name for the RoomSchema model.
func (RoomSchema) TableName() string {
	return "rooms"
}

// RoomMemberSchema links a user to a room. Rows go away with either side.
type RoomMemberSchema struct {
	RoomID uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID  `gorm:"type:uuid;primaryKey;index"`
	Room   RoomSchema `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	User   UserSchema `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the RoomMemberSchema model.
func (RoomMemberSchema) TableName() string {
	return "room_members"
}

// RoomRepoPG reads room membership. CreateRoom and AddMember are the seeding
// hooks for rooms, which are managed outside this service.
type RoomRepoPG struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewRoomRepoPG creates a new instance of RoomRepoPG.
func NewRoomRepoPG(db *gorm.DB, log *zap.Logger) *RoomRepoPG {
	return &RoomRepoPG{db: db, log: log}
}

// CreateRoom inserts a room and returns its id.
func (r *RoomRepoPG) CreateRoom(ctx context.Context, name string) (uuid.UUID, error) {
	model := RoomSchema{ID: uuid.New(), Name: name}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.log.Error("failed to create room in db", zap.Error(err), zap.String("name", name))
		return uuid.Nil, fmt.Errorf("failed to create room: %w", err)
	}
	return model.ID, nil
}

// AddMember adds userID to roomID. Adding an existing member is a no-op.
func (r *RoomRepoPG) AddMember(ctx context.Context, roomID, userID uuid.UUID) error {
	model := RoomMemberSchema{RoomID: roomID, UserID: userID}
	if err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error; err != nil {
		r.log.Error("failed to add room member", zap.Error(err),
			zap.String("room_id", roomID.String()), zap.String("user_id", userID.String()))
		return fmt.Errorf("failed to add room member: %w", err)
	}
	return nil
}

// ShareRoom reports whether targetID is a member of any room callerID belongs to.
func (r *RoomRepoPG) ShareRoom(ctx context.Context, callerID, targetID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("room_members AS caller").
		Joins("JOIN room_members AS target ON target.room_id = caller.room_id").
		Where("caller.user_id = ? AND target.user_id = ?", callerID, targetID).
		Count(&count).Error
	if err != nil {
		r.log.Error("failed to check room membership", zap.Error(err),
			zap.String("caller_id", callerID.String()), zap.String("target_id", targetID.String()))
		return false, fmt.Errorf("failed to check room membership: %w", err)
	}
	return count > 0, nil
}

// AutoMigrate creates or updates the tables owned by this package.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserSchema{}, &RoomSchema{}, &RoomMemberSchema{})
}
