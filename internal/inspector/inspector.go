// Package inspector holds the editable draft for one selected asset.
// Drafts are pure client state: opening copies fields, cancelling or a
// successful commit discards them.
package inspector

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"darayyaconnect/infra-core/internal/infragraph"
	"darayyaconnect/infra-core/internal/upstream"
)

// Store is the asset surface the inspector needs.
type Store interface {
	Snapshot() infragraph.Snapshot
	UpdateAsset(ctx context.Context, kind infragraph.AssetKind, id int64, fields upstream.UpdateFields) (upstream.UpdatedAsset, error)
	DeleteAsset(ctx context.Context, kind infragraph.AssetKind, id int64) error
}

// Draft is the editable copy of a selected asset's mutable fields.
type Draft struct {
	Kind         infragraph.AssetKind   `json:"kind"`
	ID           int64                  `json:"id"`
	Type         string                 `json:"type"`
	SerialNumber string                 `json:"serial_number"`
	Status       infragraph.AssetStatus `json:"status"`
	Zone         string                 `json:"zone"`
	Notes        string                 `json:"notes"`
}

type Controller struct {
	log   zerolog.Logger
	store Store

	mu    sync.Mutex
	draft *Draft
}

func New(log zerolog.Logger, store Store) *Controller {
	return &Controller{log: log, store: store}
}

// Open loads the selected asset's editable fields into a fresh draft from
// the last known snapshot. It never touches the network.
func (c *Controller) Open(ctx context.Context, kind infragraph.AssetKind, id int64) (Draft, error) {
	snap := c.store.Snapshot()

	draft := Draft{Kind: kind, ID: id}
	switch kind {
	case infragraph.KindNode:
		node, ok := snap.FindNode(id)
		if !ok {
			return Draft{}, &infragraph.NotFoundError{Kind: kind, ID: id}
		}
		draft.Type = node.Type
		draft.Status = node.Status
		if node.SerialNumber != nil {
			draft.SerialNumber = *node.SerialNumber
		}
		if zone, ok := node.Meta["zone"].(string); ok {
			draft.Zone = zone
		}
		if notes, ok := node.Meta["notes"].(string); ok {
			draft.Notes = notes
		}
	case infragraph.KindLine:
		line, ok := snap.FindLine(id)
		if !ok {
			return Draft{}, &infragraph.NotFoundError{Kind: kind, ID: id}
		}
		draft.Type = line.Type
		draft.Status = line.Status
	default:
		return Draft{}, &infragraph.ValidationError{Field: "kind", Reason: "unknown asset kind"}
	}

	c.mu.Lock()
	c.draft = &draft
	c.mu.Unlock()

	c.log.Debug().Str("kind", string(kind)).Int64("id", id).Msg("inspector opened")
	return draft, nil
}

// Draft returns the open draft, if any.
func (c *Controller) Draft() (Draft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return Draft{}, false
	}
	return *c.draft, true
}

// Close discards the draft without committing anything.
func (c *Controller) Close() {
	c.mu.Lock()
	c.draft = nil
	c.mu.Unlock()
}

// Save commits the draft. On success the inspector closes; validation and
// not-found failures keep it open so the error can be shown inline.
func (c *Controller) Save(ctx context.Context, draft Draft) error {
	c.mu.Lock()
	open := c.draft != nil && c.draft.Kind == draft.Kind && c.draft.ID == draft.ID
	c.mu.Unlock()
	if !open {
		return &infragraph.ValidationError{Field: "draft", Reason: "no matching open draft"}
	}

	status := draft.Status
	fields := upstream.UpdateFields{
		SerialNumber: &draft.SerialNumber,
		Status:       &status,
		Meta:         map[string]any{"zone": draft.Zone, "notes": draft.Notes},
	}

	if _, err := c.store.UpdateAsset(ctx, draft.Kind, draft.ID, fields); err != nil {
		c.log.Warn().Err(err).Int64("id", draft.ID).Msg("inspector save failed")
		return err
	}

	c.Close()
	c.log.Info().Str("kind", string(draft.Kind)).Int64("id", draft.ID).Msg("inspector saved")
	return nil
}

// Delete removes the selected asset. The inspector always closes
// afterwards, whether or not the asset still existed.
func (c *Controller) Delete(ctx context.Context) error {
	c.mu.Lock()
	draft := c.draft
	c.mu.Unlock()
	if draft == nil {
		return &infragraph.ValidationError{Field: "draft", Reason: "no open draft"}
	}

	err := c.store.DeleteAsset(ctx, draft.Kind, draft.ID)
	c.Close()
	if err != nil {
		c.log.Warn().Err(err).Int64("id", draft.ID).Msg("inspector delete failed")
		return err
	}
	c.log.Info().Str("kind", string(draft.Kind)).Int64("id", draft.ID).Msg("inspector deleted asset")
	return nil
}
