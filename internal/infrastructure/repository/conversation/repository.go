package conversation

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"snapgrid/services/chat-api/internal/domain/chat"
	"snapgrid/services/chat-api/internal/infrastructure/database"
	"snapgrid/services/chat-api/internal/infrastructure/database/entities"
	"snapgrid/services/chat-api/internal/utils/platformerrors"
)

// Repository handles conversation persistence. Reads go to the read
// handle except where read-your-own-write semantics are required.
type Repository struct {
	write *gorm.DB
	read  *gorm.DB
}

func NewRepository(conn *database.Connection) *Repository {
	return &Repository{write: conn.Write, read: conn.Read}
}

// FindOrCreate inserts the normalized pair with ON CONFLICT DO NOTHING
// and re-reads, so two racing first messages converge on one row.
func (r *Repository) FindOrCreate(ctx context.Context, userA, userB, candidateID string, now time.Time) (*chat.Conversation, error) {
	low, high := chat.NormalizePair(userA, userB)

	entity := entities.Conversation{
		ID:        candidateID,
		UserAID:   low,
		UserBID:   high,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.write.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoNothing: true,
		}).
		Create(&entity).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to upsert conversation",
			err,
			"4f2a6b8c-0d1e-4f3a-9b5c-7d9e1f3a5b6c",
		)
	}

	// Re-read through the write handle: a replica may not see the row
	// this call just inserted.
	conv, err := r.findByPair(ctx, r.write, low, high)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"conversation vanished after upsert",
			nil,
			"8b0c2d4e-6f1a-4b3c-9d5e-0f2a4b6c8d9e",
		)
	}
	return conv, nil
}

func (r *Repository) FindByPair(ctx context.Context, userA, userB string) (*chat.Conversation, error) {
	low, high := chat.NormalizePair(userA, userB)
	return r.findByPair(ctx, r.read, low, high)
}

func (r *Repository) findByPair(ctx context.Context, db *gorm.DB, low, high string) (*chat.Conversation, error) {
	var entity entities.Conversation
	err := db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", low, high).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find conversation by pair",
			err,
			"2d4e6f8a-0b1c-4d3e-8f5a-9b7c5d3e1f2a",
		)
	}
	return entity.EtoD(), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	var entity entities.Conversation
	err := r.read.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				"conversation not found",
				err,
				"6a8b0c2d-4e5f-4a1b-9c3d-5e7f9a1b3c4d",
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to get conversation by id",
			err,
			"0c2d4e6f-8a9b-4c1d-8e3f-5a7b9c1d3e4f",
		)
	}
	return entity.EtoD(), nil
}

// RecordMessage clears both members' hide flags and bumps UpdatedAt.
// The cutoff timestamps are left untouched.
func (r *Repository) RecordMessage(ctx context.Context, id string, now time.Time) error {
	res := r.write.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"user_a_deleted": false,
			"user_b_deleted": false,
			"user_a_cleared": false,
			"user_b_cleared": false,
			"updated_at":     now,
		})
	if res.Error != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to record message activity",
			res.Error,
			"e2f4a6b8-c0d1-4e3f-9a5b-7c9d1e3f5a6b",
		)
	}
	if res.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"conversation not found",
			nil,
			"a4b6c8d0-e1f2-4a3b-8c5d-9e1f3a5b7c8d",
		)
	}
	return nil
}

func (r *Repository) MarkDeleted(ctx context.Context, id, userID string, now time.Time) error {
	return r.markSide(ctx, id, userID, map[string]any{"deleted": true, "deleted_at": now})
}

func (r *Repository) MarkCleared(ctx context.Context, id, userID string, now time.Time) error {
	return r.markSide(ctx, id, userID, map[string]any{"cleared": true, "cleared_at": now})
}

// markSide resolves which pair column userID occupies and applies the
// prefixed updates to that side only. UpdatedAt is deliberately not
// touched: hiding a conversation must not reorder anyone's list.
func (r *Repository) markSide(ctx context.Context, id, userID string, updates map[string]any) error {
	for _, side := range []struct {
		userColumn string
		prefix     string
	}{
		{"user_a_id", "user_a_"},
		{"user_b_id", "user_b_"},
	} {
		prefixed := make(map[string]any, len(updates))
		for column, value := range updates {
			prefixed[side.prefix+column] = value
		}
		res := r.write.WithContext(ctx).
			Model(&entities.Conversation{}).
			Where("id = ? AND "+side.userColumn+" = ?", id, userID).
			UpdateColumns(prefixed)
		if res.Error != nil {
			return platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeDatabaseError,
				"failed to update member state",
				res.Error,
				"c6d8e0f2-a3b4-4c5d-9e7f-1a3b5c7d9e0f",
			)
		}
		if res.RowsAffected > 0 {
			return nil
		}
	}
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound,
		"conversation not found for member",
		nil,
		"8d0e2f4a-b5c6-4d7e-8f9a-3b5c7d9e1f2a",
	)
}

func (r *Repository) ListForUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	var rows []entities.Conversation
	err := r.read.WithContext(ctx).
		Where("(user_a_id = ? AND NOT user_a_deleted) OR (user_b_id = ? AND NOT user_b_deleted)", userID, userID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list conversations",
			err,
			"f0a2b4c6-d7e8-4f1a-9b3c-5d7e9f1a3b4c",
		)
	}

	convs := make([]chat.Conversation, 0, len(rows))
	for i := range rows {
		convs = append(convs, *rows[i].EtoD())
	}
	return convs, nil
}
