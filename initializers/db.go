package initializers

import (
	"approvals-backend/config"
	"approvals-backend/db"
	"gorm.io/gorm"
)

func InitDBConnection(conf *config.Configuration) (*gorm.DB, error) {
	gdb, err := db.Connect(db.ConnectParams{
		Host:      conf.Database.Host,
		Port:      conf.Database.Port,
		Database:  conf.Database.Name,
		User:      conf.Database.User,
		Password:  conf.Database.Password,
		DebugMode: *conf.Database.DebugMode,
		Migrate:   *conf.Database.MigrateOnStart,
	})
	if err != nil {
		return nil, err
	}
	if *conf.Database.MigrateCatalog {
		if err = db.AutoMigrateCatalog(gdb); err != nil {
			db.Close(gdb)
			return nil, err
		}
	}
	return gdb, nil
}
