package repositories

import (
	"context"
	"strings"

	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/anonto42/memorylane/backend/internal/viewcache"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/anonto42/memorylane/backend/validators"
	"go.uber.org/zap"
)

// CommentThread adds and removes comments on cached memories
type CommentThread struct {
	store    store.Client
	memories *viewcache.Cache[string, models.Memory]
	profiles *ProfileRepository
	log      *zap.Logger
}

// Add posts a comment as the viewer and appends the stored comment to the memory
func (t *CommentThread) Add(ctx context.Context, viewer *identity.Viewer, memoryID, content string) (*models.Comment, error) {
	if !viewer.Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to comment")
	}
	req := models.CreateCommentRequest{MemoryID: memoryID, Content: strings.TrimSpace(content)}
	if err := validators.Struct(req); err != nil {
		return nil, err
	}

	row := map[string]any{
		"memory_id": req.MemoryID,
		"user_id":   viewer.ID,
		"user_name": t.profiles.DisplayName(ctx, viewer),
		"content":   req.Content,
	}
	var rows []models.Comment
	if err := as(t.store, viewer).Insert(ctx, store.From(models.TableComments), row, &rows); err != nil {
		return nil, apperrors.Wrap(err, "failed to add comment")
	}
	if len(rows) == 0 {
		return nil, apperrors.NewInternal("insert returned no comment", nil)
	}

	c := rows[0]
	t.memories.Update(memoryID, func(m models.Memory) (models.Memory, bool) {
		m.Comments = append(withoutComment(m.Comments, c.ID), c)
		return m, true
	})
	return &c, nil
}

// Remove deletes one of the viewer's own comments
func (t *CommentThread) Remove(ctx context.Context, viewer *identity.Viewer, commentID string) error {
	if !viewer.Authenticated() {
		return apperrors.NewUnauthorized("sign in to delete comments")
	}
	memoryID, c, ok := t.find(commentID)
	if ok && c.UserID != viewer.ID {
		return apperrors.NewUnauthorized("only the author can delete this comment")
	}

	n, err := as(t.store, viewer).Delete(ctx, store.From(models.TableComments).Where(
		store.Eq("id", commentID),
		store.Eq("user_id", viewer.ID),
	), nil)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete comment")
	}
	if n == 0 {
		return apperrors.NewNotFound("comment not found")
	}
	if ok {
		t.memories.Update(memoryID, func(m models.Memory) (models.Memory, bool) {
			m.Comments = withoutComment(m.Comments, commentID)
			return m, true
		})
	}
	return nil
}

// find locates a cached comment
func (t *CommentThread) find(commentID string) (string, models.Comment, bool) {
	for _, m := range t.memories.List() {
		for _, c := range m.Comments {
			if c.ID == commentID {
				return m.ID, c, true
			}
		}
	}
	return "", models.Comment{}, false
}

func withoutComment(comments []models.Comment, id string) []models.Comment {
	out := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
