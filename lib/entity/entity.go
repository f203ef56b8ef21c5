package entity

import (
	"context"

	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
)

// Preview is what the approval engine shows about a reviewed record.
// Found is false when the record was deleted or could not be loaded.
type Preview struct {
	Type    models.EntityType
	ID      string
	Title   string
	Payload map[string]any
	Found   bool
}

func NotFound(entityType models.EntityType, id string) Preview {
	return Preview{
		Type:  entityType,
		ID:    id,
		Title: entityType.ToHuman() + " " + id,
	}
}

// Resolver loads one entity kind.
type Resolver interface {
	Resolve(ctx context.Context, id string) (Preview, error)
}

type Provider interface {
	// ResolveEntity never fails for a missing record: it returns a preview with Found unset.
	ResolveEntity(ctx context.Context, entityType models.EntityType, id string) (Preview, error)
}

func NewRegistry(resolvers map[models.EntityType]Resolver) Provider {
	return &registry{
		resolvers: resolvers,
	}
}

type registry struct {
	resolvers map[models.EntityType]Resolver
}

func (r registry) ResolveEntity(ctx context.Context, entityType models.EntityType, id string) (Preview, error) {
	resolver, ok := r.resolvers[entityType]
	if !ok {
		return NotFound(entityType, id), apperrors.NewValidationErrorf("unsupported entity type: %v", entityType)
	}
	preview, err := resolver.Resolve(ctx, id)
	if err != nil {
		return NotFound(entityType, id), apperrors.NewGatewayError("entity", err)
	}
	if !preview.Found {
		return NotFound(entityType, id), nil
	}
	preview.Type = entityType
	preview.ID = id
	return preview, nil
}
