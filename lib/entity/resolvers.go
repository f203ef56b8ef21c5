package entity

import (
	"context"
	"time"

	"approvals-backend/models"
	dbmodels "approvals-backend/models/db"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// NewCatalogRegistry wires one resolver per entity kind over the catalog tables.
func NewCatalogRegistry(DB *gorm.DB) Provider {
	return NewRegistry(map[models.EntityType]Resolver{
		models.EntityTypeForm:      formResolver{db: DB},
		models.EntityTypeSiteDiary: siteDiaryResolver{db: DB},
		models.EntityTypeTask:      taskResolver{db: DB},
		models.EntityTypeEntry:     entryResolver{db: DB},
	})
}

func first[T any](ctx context.Context, db *gorm.DB, id string) (*T, error) {
	var rec T
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

type formResolver struct {
	db *gorm.DB
}

func (r formResolver) Resolve(ctx context.Context, id string) (Preview, error) {
	rec, err := first[dbmodels.FormSubmission](ctx, r.db, id)
	if err != nil || rec == nil {
		return Preview{}, err
	}
	return FormPreview(*rec), nil
}

func FormPreview(rec dbmodels.FormSubmission) Preview {
	return Preview{
		Title: rec.Name,
		Payload: map[string]any{
			"description":  rec.Description,
			"submitted_by": rec.SubmittedBy,
			"created_at":   rec.CreatedAt,
		},
		Found: true,
	}
}

type siteDiaryResolver struct {
	db *gorm.DB
}

func (r siteDiaryResolver) Resolve(ctx context.Context, id string) (Preview, error) {
	rec, err := first[dbmodels.SiteDiary](ctx, r.db, id)
	if err != nil || rec == nil {
		return Preview{}, err
	}
	return SiteDiaryPreview(*rec), nil
}

func SiteDiaryPreview(rec dbmodels.SiteDiary) Preview {
	title := rec.Name
	if title == "" {
		title = "Site diary " + rec.Date.Format(time.DateOnly)
	}
	return Preview{
		Title: title,
		Payload: map[string]any{
			"date":       rec.Date.Format(time.DateOnly),
			"weather":    rec.Weather,
			"summary":    rec.Summary,
			"created_by": rec.CreatedBy,
		},
		Found: true,
	}
}

type taskResolver struct {
	db *gorm.DB
}

func (r taskResolver) Resolve(ctx context.Context, id string) (Preview, error) {
	rec, err := first[dbmodels.Task](ctx, r.db, id)
	if err != nil || rec == nil {
		return Preview{}, err
	}
	return TaskPreview(*rec), nil
}

func TaskPreview(rec dbmodels.Task) Preview {
	payload := map[string]any{
		"description": rec.Description,
		"status":      rec.Status,
		"assignee_id": rec.AssigneeID,
	}
	if rec.DueDate != nil {
		payload["due_date"] = rec.DueDate.Format(time.DateOnly)
	}
	return Preview{
		Title:   rec.Title,
		Payload: payload,
		Found:   true,
	}
}

type entryResolver struct {
	db *gorm.DB
}

func (r entryResolver) Resolve(ctx context.Context, id string) (Preview, error) {
	rec, err := first[dbmodels.Entry](ctx, r.db, id)
	if err != nil || rec == nil {
		return Preview{}, err
	}
	return EntryPreview(*rec), nil
}

const entryExcerptLength = 200

func EntryPreview(rec dbmodels.Entry) Preview {
	excerpt := []rune(rec.Body)
	if len(excerpt) > entryExcerptLength {
		excerpt = append(excerpt[:entryExcerptLength], '…')
	}
	return Preview{
		Title: rec.Title,
		Payload: map[string]any{
			"kind":    rec.Kind,
			"excerpt": string(excerpt),
		},
		Found: true,
	}
}
