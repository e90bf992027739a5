package entities

import (
	"time"

	"snapgrid/services/chat-api/internal/domain/chat"
)

// Conversation is the persisted form of a two-party thread. The pair
// is stored normalized (user_a_id < user_b_id); the unique index over
// the pair is created by the SQL migrations.
type Conversation struct {
	ID       string `gorm:"type:varchar(40);primaryKey"`
	UserAID  string `gorm:"type:varchar(64);not null"`
	UserBID  string `gorm:"type:varchar(64);not null"`
	UserADel bool   `gorm:"column:user_a_deleted;not null;default:false"`
	UserBDel bool   `gorm:"column:user_b_deleted;not null;default:false"`
	UserAClr bool   `gorm:"column:user_a_cleared;not null;default:false"`
	UserBClr bool   `gorm:"column:user_b_cleared;not null;default:false"`

	UserADeletedAt *time.Time `gorm:"column:user_a_deleted_at"`
	UserBDeletedAt *time.Time `gorm:"column:user_b_deleted_at"`
	UserAClearedAt *time.Time `gorm:"column:user_a_cleared_at"`
	UserBClearedAt *time.Time `gorm:"column:user_b_cleared_at"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	// UpdatedAt is last message activity, not last row write. Clears
	// and deletes must not reorder the conversation list, so the
	// repository sets it explicitly instead of using autoUpdateTime.
	UpdatedAt time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}

// EtoD converts the entity to the domain model.
func (c *Conversation) EtoD() *chat.Conversation {
	return &chat.Conversation{
		ID:           c.ID,
		Participants: [2]string{c.UserAID, c.UserBID},
		States: map[string]chat.MemberState{
			c.UserAID: {Deleted: c.UserADel, DeletedAt: c.UserADeletedAt, Cleared: c.UserAClr, ClearedAt: c.UserAClearedAt},
			c.UserBID: {Deleted: c.UserBDel, DeletedAt: c.UserBDeletedAt, Cleared: c.UserBClr, ClearedAt: c.UserBClearedAt},
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
