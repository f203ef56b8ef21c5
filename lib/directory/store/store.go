package directorystore

import (
	"context"

	dbmodels "approvals-backend/models/db"
	"gorm.io/gorm"
)

type Provider interface {
	FindByIDs(ctx context.Context, ids []string) ([]dbmodels.DirectoryUser, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) FindByIDs(ctx context.Context, ids []string) (list []dbmodels.DirectoryUser, err error) {
	if len(ids) == 0 {
		return nil, nil
	}
	err = i.db.WithContext(ctx).
		Where("id in (?)", ids).
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
