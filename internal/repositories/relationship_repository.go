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

// RelationshipView is the viewer's relationships split for display
type RelationshipView struct {
	Accepted []models.Relationship
	// Pending holds only requests waiting for the viewer's answer.
	Pending []models.Relationship
}

// RelationshipRepository manages relationship requests between users
type RelationshipRepository struct {
	store    store.Client
	finder   UserFinder
	notifier InvitationSender
	cache    *viewcache.Cache[string, models.Relationship]
	log      *zap.Logger
}

// NewRelationshipRepository creates a new RelationshipRepository. notifier may be nil.
func NewRelationshipRepository(client store.Client, finder UserFinder, notifier InvitationSender, log *zap.Logger) *RelationshipRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &RelationshipRepository{
		store:    client,
		finder:   finder,
		notifier: notifier,
		cache:    viewcache.New(func(r models.Relationship) string { return r.ID }),
		log:      log,
	}
}

// Relationships returns a snapshot of every cached relationship of the viewer
func (r *RelationshipRepository) Relationships() []models.Relationship {
	return r.cache.List()
}

// List loads every relationship the viewer is part of
func (r *RelationshipRepository) List(ctx context.Context, viewer *identity.Viewer) (*RelationshipView, error) {
	if !viewer.Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to see your relationships")
	}
	c := as(r.store, viewer)
	q := store.From(models.TableRelationships).
		Embed(store.EmbedRequester, store.EmbedReceiver).
		Where(involving(viewer.ID)).
		OrderBy("created_at", true)

	var rows []models.Relationship
	err := c.Select(ctx, q, &rows)
	if apperrors.IsSchemaDegraded(err) {
		r.log.Warn("relationship joins unavailable, resolving names separately", zap.Error(err))
		rows = nil
		if err = c.Select(ctx, q.Flat(), &rows); err == nil {
			r.attachProfiles(ctx, c, rows)
		}
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load relationships")
	}

	for i := range rows {
		derivePartner(&rows[i], viewer.ID)
	}
	r.cache.Reset(rows)
	return partition(rows, viewer.ID), nil
}

// attachProfiles fills requester and receiver from the profiles table
func (r *RelationshipRepository) attachProfiles(ctx context.Context, c store.Client, rows []models.Relationship) {
	if len(rows) == 0 {
		return
	}
	seen := map[string]bool{}
	var ids []any
	for _, rel := range rows {
		for _, id := range []string{rel.RequesterID, rel.ReceiverID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	var profiles []models.UserProfile
	if err := c.Select(ctx, store.From(models.TableProfiles).Where(store.In("id", ids...)), &profiles); err != nil {
		r.log.Warn("failed to load partner profiles", zap.Error(err))
		return
	}
	byID := make(map[string]*models.UserProfile, len(profiles))
	for i := range profiles {
		byID[profiles[i].ID] = &profiles[i]
	}
	for i := range rows {
		rows[i].Requester = byID[rows[i].RequesterID]
		rows[i].Receiver = byID[rows[i].ReceiverID]
	}
}

// Send asks the user identified by an email address or display name to connect
func (r *RelationshipRepository) Send(ctx context.Context, viewer *identity.Viewer, receiver string, t models.RelationshipType) (*models.Relationship, error) {
	if !viewer.Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to send requests")
	}
	req := models.SendRelationshipRequest{Receiver: strings.TrimSpace(receiver), RelationshipType: t}
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	if viewer.Email != "" && strings.EqualFold(req.Receiver, viewer.Email) {
		return nil, apperrors.NewValidation("you cannot send a request to yourself")
	}

	target, err := r.finder.FindUser(ctx, viewer, req.Receiver)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("No user found with that email or name")
		}
		return nil, apperrors.Wrap(err, "failed to look up user")
	}
	if target.ID == viewer.ID {
		return nil, apperrors.NewValidation("you cannot send a request to yourself")
	}

	row := map[string]any{
		"requester_id":      viewer.ID,
		"receiver_id":       target.ID,
		"status":            models.StatusPending,
		"relationship_type": t,
		"is_primary":        false,
	}
	var rows []models.Relationship
	err = as(r.store, viewer).Insert(ctx, store.From(models.TableRelationships), row, &rows)
	if apperrors.IsConflict(err) {
		return nil, apperrors.NewConflict("relationship already exists", err)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to send request")
	}
	if len(rows) == 0 {
		return nil, apperrors.NewInternal("insert returned no relationship", nil)
	}

	rel := rows[0]
	if rel.Receiver == nil {
		rel.Receiver = &models.UserProfile{ID: target.ID, DisplayName: target.DisplayName}
	}
	derivePartner(&rel, viewer.ID)
	r.cache.Prepend(rel)

	if r.notifier != nil {
		inv := models.InvitationRequest{RelationshipID: rel.ID, ReceiverID: target.ID, RelationshipType: t}
		if err := r.notifier.SendInvitation(ctx, viewer, inv); err != nil {
			r.log.Warn("failed to send invitation", zap.String("relationship_id", rel.ID), zap.Error(err))
		}
	}
	return &rel, nil
}

// Respond accepts or declines a pending request addressed to the viewer and reloads the list
func (r *RelationshipRepository) Respond(ctx context.Context, viewer *identity.Viewer, id string, accept bool) (*RelationshipView, error) {
	if !viewer.Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to answer requests")
	}
	c := as(r.store, viewer)

	var rows []models.Relationship
	if err := c.Select(ctx, store.From(models.TableRelationships).Where(store.Eq("id", id)), &rows); err != nil {
		return nil, apperrors.Wrap(err, "failed to load request")
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFound("relationship not found")
	}
	rel := rows[0]
	if rel.ReceiverID != viewer.ID {
		return nil, apperrors.NewUnauthorized("only the receiver can answer this request")
	}
	if rel.Status != models.StatusPending {
		return nil, apperrors.NewConflict("already responded", nil)
	}

	status := models.StatusDeclined
	if accept {
		status = models.StatusAccepted
	}
	n, err := c.Update(ctx, store.From(models.TableRelationships).Where(
		store.Eq("id", id),
		store.Eq("receiver_id", viewer.ID),
		store.Eq("status", models.StatusPending),
	), map[string]any{"status": status, "updated_at": now()}, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to answer request")
	}
	if n == 0 {
		return nil, apperrors.NewConflict("already responded", nil)
	}
	return r.List(ctx, viewer)
}

// Remove ends an accepted relationship the viewer is part of
func (r *RelationshipRepository) Remove(ctx context.Context, viewer *identity.Viewer, id string) error {
	if !viewer.Authenticated() {
		return apperrors.NewUnauthorized("sign in to remove relationships")
	}
	n, err := as(r.store, viewer).Delete(ctx, store.From(models.TableRelationships).Where(
		store.Eq("id", id),
		involving(viewer.ID),
		store.Eq("status", models.StatusAccepted),
	), nil)
	if err != nil {
		return apperrors.Wrap(err, "failed to remove relationship")
	}
	if n == 0 {
		return apperrors.NewNotFound("relationship not found")
	}
	r.cache.Remove(id)
	return nil
}

// Partners returns the ids of users with an accepted relationship to the viewer
func (r *RelationshipRepository) Partners(ctx context.Context, viewer *identity.Viewer) ([]string, error) {
	if !viewer.Authenticated() {
		return nil, nil
	}
	var rows []models.Relationship
	err := as(r.store, viewer).Select(ctx, store.From(models.TableRelationships).Where(
		involving(viewer.ID),
		store.Eq("status", models.StatusAccepted),
	), &rows)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load partners")
	}
	ids := make([]string, 0, len(rows))
	for i := range rows {
		derivePartner(&rows[i], viewer.ID)
		ids = append(ids, rows[i].PartnerID)
	}
	return ids, nil
}

func involving(userID string) store.Filter {
	return store.Or(store.Eq("requester_id", userID), store.Eq("receiver_id", userID))
}

// derivePartner sets the partner fields relative to viewerID
func derivePartner(rel *models.Relationship, viewerID string) {
	partner := rel.Requester
	rel.PartnerID = rel.RequesterID
	if rel.RequesterID == viewerID {
		partner = rel.Receiver
		rel.PartnerID = rel.ReceiverID
	}
	name := ""
	if partner != nil {
		name = partner.DisplayName
	}
	rel.PartnerName = identity.NormalizeDisplayName(name)
}

func partition(rows []models.Relationship, viewerID string) *RelationshipView {
	view := &RelationshipView{Accepted: []models.Relationship{}, Pending: []models.Relationship{}}
	for _, rel := range rows {
		switch {
		case rel.Status == models.StatusAccepted:
			view.Accepted = append(view.Accepted, rel)
		case rel.Status == models.StatusPending && rel.ReceiverID == viewerID:
			view.Pending = append(view.Pending, rel)
		}
	}
	return view
}
