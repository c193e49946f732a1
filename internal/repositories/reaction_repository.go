package repositories

import (
	"context"

	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/anonto42/memorylane/backend/internal/viewcache"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"go.uber.org/zap"
)

// ReactionLedger toggles the viewer's reactions on cached memories
type ReactionLedger struct {
	store    store.Client
	memories *viewcache.Cache[string, models.Memory]
	profiles *ProfileRepository
	log      *zap.Logger
}

// Toggle adds the viewer's reaction of type t to the memory, or removes it if the viewer
// already holds one. Without a signed-in viewer it does nothing.
func (l *ReactionLedger) Toggle(ctx context.Context, viewer *identity.Viewer, memoryID string, t models.ReactionType) error {
	if !viewer.Authenticated() {
		return nil
	}
	if !t.Valid() {
		return apperrors.NewValidation("unknown reaction", string(t)+" is not a reaction type")
	}

	c := as(l.store, viewer)
	key := store.From(models.TableReactions).Where(
		store.Eq("memory_id", memoryID),
		store.Eq("user_id", viewer.ID),
		store.Eq("reaction_type", t),
	)

	if l.holds(memoryID, viewer.ID, t) {
		if _, err := c.Delete(ctx, key, nil); err != nil {
			return apperrors.Wrap(err, "failed to remove reaction")
		}
		l.memories.Update(memoryID, func(m models.Memory) (models.Memory, bool) {
			m.Reactions = withoutReaction(m.Reactions, viewer.ID, t)
			return m, true
		})
		return nil
	}

	row := map[string]any{
		"memory_id":     memoryID,
		"user_id":       viewer.ID,
		"reaction_type": t,
		"user_name":     l.profiles.DisplayName(ctx, viewer),
	}
	var rows []models.Reaction
	err := c.Insert(ctx, store.From(models.TableReactions), row, &rows)
	if apperrors.IsConflict(err) {
		// Another click already stored it; adopt the stored row.
		l.log.Debug("reaction already stored", zap.String("memory_id", memoryID), zap.String("type", string(t)))
		rows = nil
		err = c.Select(ctx, key, &rows)
	}
	if err != nil {
		return apperrors.Wrap(err, "failed to add reaction")
	}
	if len(rows) == 0 {
		return apperrors.NewNotFound("reaction not found")
	}

	confirmed := rows[0]
	l.memories.Update(memoryID, func(m models.Memory) (models.Memory, bool) {
		m.Reactions = append(withoutReaction(m.Reactions, confirmed.UserID, confirmed.ReactionType), confirmed)
		return m, true
	})
	return nil
}

// holds reports whether the cached memory carries the user's reaction of type t
func (l *ReactionLedger) holds(memoryID, userID string, t models.ReactionType) bool {
	m, ok := l.memories.Get(memoryID)
	if !ok {
		return false
	}
	for _, r := range m.Reactions {
		if r.UserID == userID && r.ReactionType == t {
			return true
		}
	}
	return false
}

// withoutReaction returns a copy of reactions without the user's reactions of type t
func withoutReaction(reactions []models.Reaction, userID string, t models.ReactionType) []models.Reaction {
	out := make([]models.Reaction, 0, len(reactions))
	for _, r := range reactions {
		if r.UserID == userID && r.ReactionType == t {
			continue
		}
		out = append(out, r)
	}
	return out
}
