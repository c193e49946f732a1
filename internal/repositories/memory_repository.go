package repositories

import (
	"context"
	"fmt"
	"slices"

	"github.com/anonto42/memorylane/backend/internal/assets"
	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/anonto42/memorylane/backend/internal/viewcache"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/anonto42/memorylane/backend/validators"
	"go.uber.org/zap"
)

var memoryEmbeds = []string{store.EmbedReactions, store.EmbedComments, store.EmbedParticipants}

// FetchOptions narrows a timeline fetch
type FetchOptions struct {
	PublicOnly bool
	// AuthorID restricts the result to one author's memories. Another author's private
	// memories are never returned.
	AuthorID string
}

// MemoryRepository loads and mutates memories and keeps the timeline cache
type MemoryRepository struct {
	store     store.Client
	assets    *assets.Manager
	profiles  *ProfileRepository
	partners  PartnerLister
	cache     *viewcache.Cache[string, models.Memory]
	reactions *ReactionLedger
	comments  *CommentThread
	log       *zap.Logger
}

// NewMemoryRepository creates a new MemoryRepository. partners may be nil, in which case
// memories cannot tag other users.
func NewMemoryRepository(client store.Client, images *assets.Manager, profiles *ProfileRepository, partners PartnerLister, log *zap.Logger) *MemoryRepository {
	if log == nil {
		log = zap.NewNop()
	}
	r := &MemoryRepository{
		store:    client,
		assets:   images,
		profiles: profiles,
		partners: partners,
		cache:    viewcache.New(func(m models.Memory) string { return m.ID }),
		log:      log,
	}
	r.reactions = &ReactionLedger{store: client, memories: r.cache, profiles: profiles, log: log}
	r.comments = &CommentThread{store: client, memories: r.cache, profiles: profiles, log: log}
	return r
}

// Reactions returns the reaction ledger bound to this repository's cache
func (r *MemoryRepository) Reactions() *ReactionLedger {
	return r.reactions
}

// Comments returns the comment thread bound to this repository's cache
func (r *MemoryRepository) Comments() *CommentThread {
	return r.comments
}

// Memories returns a snapshot of the cached timeline
func (r *MemoryRepository) Memories() []models.Memory {
	return r.cache.List()
}

// FetchMany loads the timeline newest first and replaces the cache with it
func (r *MemoryRepository) FetchMany(ctx context.Context, viewer *identity.Viewer, opts FetchOptions) ([]models.Memory, error) {
	q := store.From(models.TableMemories).Embed(memoryEmbeds...).OrderBy("created_at", true)

	switch {
	case opts.AuthorID != "":
		q = q.Where(store.Eq("author_id", opts.AuthorID))
		if opts.PublicOnly || !viewer.Is(opts.AuthorID) {
			q = q.Where(store.Eq("is_public", true))
		}
	case opts.PublicOnly || !viewer.Authenticated():
		q = q.Where(store.Eq("is_public", true))
	default:
		q = q.Where(store.Or(store.Eq("is_public", true), store.Eq("author_id", viewer.ID)))
	}

	rows, err := r.selectMemories(ctx, viewer, q)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load memories")
	}
	r.cache.Reset(rows)
	return rows, nil
}

// FetchOne loads a single memory visible to the viewer and caches it
func (r *MemoryRepository) FetchOne(ctx context.Context, viewer *identity.Viewer, id string) (*models.Memory, error) {
	q := store.From(models.TableMemories).Embed(memoryEmbeds...).Where(store.Eq("id", id))
	if viewer.Authenticated() {
		q = q.Where(store.Or(store.Eq("is_public", true), store.Eq("author_id", viewer.ID)))
	} else {
		q = q.Where(store.Eq("is_public", true))
	}

	rows, err := r.selectMemories(ctx, viewer, q)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load memory")
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFound("memory not found")
	}
	m := rows[0]
	r.cache.Upsert(m)
	return &m, nil
}

// selectMemories runs q joined, retrying flat when the backend cannot join
func (r *MemoryRepository) selectMemories(ctx context.Context, viewer *identity.Viewer, q store.Query) ([]models.Memory, error) {
	c := as(r.store, viewer)
	var rows []models.Memory
	err := c.Select(ctx, q, &rows)
	if apperrors.IsSchemaDegraded(err) {
		r.log.Warn("memory joins unavailable, loading without reactions/comments/participants", zap.Error(err))
		rows = nil
		err = c.Select(ctx, q.Flat(), &rows)
	}
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].EnsureCollections()
	}
	return rows, nil
}

// Create uploads files, stores the memory with its participants and prepends it to the cache.
// Nothing the call stored survives a failure.
func (r *MemoryRepository) Create(ctx context.Context, viewer *identity.Viewer, req models.CreateMemoryRequest, files []assets.File) (*models.Memory, error) {
	if !viewer.Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to create a memory")
	}
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	if err := r.assets.Validate(files); err != nil {
		return nil, err
	}
	if err := r.checkParticipants(ctx, viewer, req.Participants); err != nil {
		return nil, err
	}

	var isPublic bool
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	} else {
		isPublic = r.profiles.DefaultPrivacy(ctx, viewer)
	}
	authorName := r.profiles.DisplayName(ctx, viewer)

	urls, err := r.assets.UploadAll(ctx, files, viewer.ID)
	if err != nil {
		return nil, err
	}

	row := map[string]any{
		"title":       req.Title,
		"description": req.Description,
		"date":        req.Date,
		"location":    req.Location,
		"category":    req.Category,
		"is_public":   isPublic,
		"images":      models.ImageList(urls),
		"author_id":   viewer.ID,
		"author_name": authorName,
	}

	c := as(r.store, viewer)
	q := store.From(models.TableMemories).Embed(memoryEmbeds...)
	var rows []models.Memory
	err = c.Insert(ctx, q, row, &rows)
	if apperrors.IsSchemaDegraded(err) {
		r.log.Warn("memory joins unavailable, inserting without them", zap.Error(err))
		rows = nil
		err = c.Insert(ctx, q.Flat(), row, &rows)
	}
	if err == nil && len(rows) == 0 {
		err = apperrors.NewInternal("insert returned no memory", nil)
	}
	if err != nil {
		r.assets.DeleteURLs(context.WithoutCancel(ctx), urls)
		return nil, apperrors.Wrap(err, "failed to create memory")
	}
	m := rows[0]

	if len(req.Participants) > 0 {
		tagged, err := r.insertParticipants(ctx, c, m.ID, req.Participants)
		if err != nil {
			cleanup := context.WithoutCancel(ctx)
			if _, derr := c.Delete(cleanup, store.From(models.TableMemories).Where(store.Eq("id", m.ID), store.Eq("author_id", viewer.ID)), nil); derr != nil {
				r.log.Warn("failed to remove memory after tagging failed", zap.String("memory_id", m.ID), zap.Error(derr))
			}
			r.assets.DeleteURLs(cleanup, urls)
			return nil, apperrors.Wrap(err, "failed to tag participants")
		}
		m.Participants = tagged
	}

	m.EnsureCollections()
	r.cache.Prepend(m)
	return &m, nil
}

// Update edits a memory. Images missing from desired are deleted, newFiles are uploaded and
// appended, and participants are replaced when req.Participants is set. A nil desired keeps
// every current image.
func (r *MemoryRepository) Update(ctx context.Context, viewer *identity.Viewer, id string, req models.UpdateMemoryRequest, desired []string, newFiles []assets.File) (*models.Memory, error) {
	if !viewer.Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to edit a memory")
	}
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	current, err := r.current(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if current.AuthorID != viewer.ID {
		return nil, apperrors.NewUnauthorized("only the author can edit this memory")
	}

	if desired == nil {
		desired = slices.Clone(current.Images)
	}
	for _, u := range desired {
		if !slices.Contains(current.Images, u) {
			return nil, apperrors.NewValidation("unknown image", fmt.Sprintf("%s is not attached to this memory", u))
		}
	}
	if total := len(desired) + len(newFiles); total > assets.MaxImages {
		return nil, apperrors.NewValidation("too many images", fmt.Sprintf("at most %d images are allowed, got %d", assets.MaxImages, total))
	}
	if err := r.assets.Validate(newFiles); err != nil {
		return nil, err
	}
	var participants []models.ParticipantInput
	if req.Participants != nil {
		participants = *req.Participants
		if err := validators.Struct(struct {
			Participants []models.ParticipantInput `validate:"dive"`
		}{participants}); err != nil {
			return nil, err
		}
		if err := r.checkParticipants(ctx, viewer, participants); err != nil {
			return nil, err
		}
	}

	var removed []string
	for _, u := range current.Images {
		if !slices.Contains(desired, u) {
			removed = append(removed, u)
		}
	}
	r.assets.DeleteURLs(ctx, removed)

	added, err := r.assets.UploadAll(ctx, newFiles, viewer.ID)
	if err != nil {
		return nil, err
	}
	cleanup := func() { r.assets.DeleteURLs(context.WithoutCancel(ctx), added) }

	c := as(r.store, viewer)
	var prior, tagged []models.Participant
	if req.Participants != nil {
		if err := c.Select(ctx, store.From(models.TableParticipants).Where(store.Eq("memory_id", id)), &prior); err != nil {
			cleanup()
			return nil, apperrors.Wrap(err, "failed to load participants")
		}
		cleanup = func() {
			r.assets.DeleteURLs(context.WithoutCancel(ctx), added)
			r.restoreParticipants(context.WithoutCancel(ctx), c, id, prior)
		}
		if _, err := c.Delete(ctx, store.From(models.TableParticipants).Where(store.Eq("memory_id", id)), nil); err != nil {
			cleanup()
			return nil, apperrors.Wrap(err, "failed to replace participants")
		}
		if tagged, err = r.insertParticipants(ctx, c, id, participants); err != nil {
			cleanup()
			return nil, apperrors.Wrap(err, "failed to replace participants")
		}
	}

	values := map[string]any{
		"images":     models.ImageList(append(slices.Clone(desired), added...)),
		"updated_at": now(),
	}
	if req.Title != nil {
		values["title"] = *req.Title
	}
	if req.Description != nil {
		values["description"] = *req.Description
	}
	if req.Date != nil {
		values["date"] = *req.Date
	}
	if req.Location != nil {
		values["location"] = *req.Location
	}
	if req.Category != nil {
		values["category"] = *req.Category
	}
	if req.IsPublic != nil {
		values["is_public"] = *req.IsPublic
	}

	q := store.From(models.TableMemories).Embed(memoryEmbeds...).Where(store.Eq("id", id), store.Eq("author_id", viewer.ID))
	var rows []models.Memory
	n, err := c.Update(ctx, q, values, &rows)
	degraded := apperrors.IsSchemaDegraded(err)
	if degraded {
		r.log.Warn("memory joins unavailable, updating without them", zap.String("memory_id", id), zap.Error(err))
		rows = nil
		n, err = c.Update(ctx, q.Flat(), values, &rows)
	}
	if err != nil {
		cleanup()
		return nil, apperrors.Wrap(err, "failed to update memory")
	}
	if n == 0 || len(rows) == 0 {
		cleanup()
		return nil, apperrors.NewNotFound("memory not found")
	}

	m := rows[0]
	merge := func(prior models.Memory) models.Memory {
		if degraded {
			m.Reactions = prior.Reactions
			m.Comments = prior.Comments
			m.Participants = prior.Participants
			if req.Participants != nil {
				m.Participants = tagged
			}
		}
		m.EnsureCollections()
		return m
	}
	if !r.cache.Update(id, func(prior models.Memory) (models.Memory, bool) { return merge(prior), true }) {
		merge(*current)
	}
	return &m, nil
}

// Delete removes a memory, then its images. The cache drops the memory once the row is gone,
// whether or not image cleanup succeeds.
func (r *MemoryRepository) Delete(ctx context.Context, viewer *identity.Viewer, id string) error {
	if !viewer.Authenticated() {
		return apperrors.NewUnauthorized("sign in to delete a memory")
	}
	current, err := r.current(ctx, viewer, id)
	if err != nil {
		return err
	}
	if current.AuthorID != viewer.ID {
		return apperrors.NewUnauthorized("only the author can delete this memory")
	}

	var rows []models.Memory
	n, err := as(r.store, viewer).Delete(ctx, store.From(models.TableMemories).Where(store.Eq("id", id), store.Eq("author_id", viewer.ID)), &rows)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete memory")
	}
	r.cache.Remove(id)
	if n == 0 {
		return apperrors.NewNotFound("memory not found")
	}
	images := current.Images
	if len(rows) > 0 {
		images = rows[0].Images
	}
	r.assets.DeleteURLs(ctx, images)
	return nil
}

// current returns the cached memory or loads it
func (r *MemoryRepository) current(ctx context.Context, viewer *identity.Viewer, id string) (*models.Memory, error) {
	if m, ok := r.cache.Get(id); ok {
		return &m, nil
	}
	return r.FetchOne(ctx, viewer, id)
}

// checkParticipants allows tagging only the author's accepted partners
func (r *MemoryRepository) checkParticipants(ctx context.Context, viewer *identity.Viewer, participants []models.ParticipantInput) error {
	if len(participants) == 0 {
		return nil
	}
	if r.partners == nil {
		return apperrors.NewValidation("tagging is not available")
	}
	partners, err := r.partners.Partners(ctx, viewer)
	if err != nil {
		return apperrors.Wrap(err, "failed to load partners")
	}
	var details []string
	seen := map[string]bool{}
	for _, p := range participants {
		switch {
		case p.UserID == viewer.ID:
			details = append(details, "you cannot tag yourself")
		case seen[p.UserID]:
			details = append(details, fmt.Sprintf("%s is tagged twice", p.UserID))
		case !slices.Contains(partners, p.UserID):
			details = append(details, fmt.Sprintf("%s is not one of your partners", p.UserID))
		}
		seen[p.UserID] = true
	}
	if len(details) > 0 {
		return apperrors.NewValidation("invalid participants", details...)
	}
	return nil
}

func (r *MemoryRepository) insertParticipants(ctx context.Context, c store.Client, memoryID string, participants []models.ParticipantInput) ([]models.Participant, error) {
	tagged := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		row := models.Participant{MemoryID: memoryID, UserID: p.UserID, UserName: identity.NormalizeDisplayName(p.UserName)}
		var out []models.Participant
		if err := c.Insert(ctx, store.From(models.TableParticipants), row, &out); err != nil {
			return nil, err
		}
		if len(out) > 0 {
			row = out[0]
		}
		tagged = append(tagged, row)
	}
	return tagged, nil
}

// restoreParticipants puts back the rows captured before a failed replacement
func (r *MemoryRepository) restoreParticipants(ctx context.Context, c store.Client, memoryID string, prior []models.Participant) {
	if _, err := c.Delete(ctx, store.From(models.TableParticipants).Where(store.Eq("memory_id", memoryID)), nil); err != nil {
		r.log.Warn("failed to restore participants", zap.String("memory_id", memoryID), zap.Error(err))
		return
	}
	for _, p := range prior {
		if err := c.Insert(ctx, store.From(models.TableParticipants), p, nil); err != nil {
			r.log.Warn("failed to restore participant", zap.String("memory_id", memoryID), zap.String("user_id", p.UserID), zap.Error(err))
		}
	}
}
