package db

import (
	dbmodels "approvals-backend/models/db"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func AutoMigrateDB(db *gorm.DB) error {
	log.Info("Running migrations")
	if err := db.AutoMigrate(&dbmodels.Approval{}); err != nil {
		return errors.Wrap(err, "failed to migrate Approval")
	}
	if err := db.AutoMigrate(&dbmodels.ApprovalApprover{}); err != nil {
		return errors.Wrap(err, "failed to migrate ApprovalApprover")
	}
	if err := db.AutoMigrate(&dbmodels.ApprovalResponse{}); err != nil {
		return errors.Wrap(err, "failed to migrate ApprovalResponse")
	}
	if err := db.AutoMigrate(&dbmodels.ApprovalComment{}); err != nil {
		return errors.Wrap(err, "failed to migrate ApprovalComment")
	}
	if err := db.AutoMigrate(&dbmodels.ApprovalHistory{}); err != nil {
		return errors.Wrap(err, "failed to migrate ApprovalHistory")
	}
	log.Info("Migrations finished")
	return nil
}

// AutoMigrateCatalog creates the tables owned by the directory, membership and entity
// services. Only test databases and local setups need it.
func AutoMigrateCatalog(db *gorm.DB) error {
	err := db.AutoMigrate(
		&dbmodels.DirectoryUser{},
		&dbmodels.ProjectMember{},
		&dbmodels.FormSubmission{},
		&dbmodels.SiteDiary{},
		&dbmodels.Task{},
		&dbmodels.Entry{},
	)
	return errors.Wrap(err, "failed to migrate catalog tables")
}
