package db

import (
	"fmt"

	gorm_logrus "github.com/onrik/gorm-logrus"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ConnectParams struct {
	Host      string
	Port      string
	Database  string
	User      string
	Password  string
	DebugMode bool
	Migrate   bool
}

func (p ConnectParams) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable password=%s", p.Host, p.Port, p.User, p.Database, p.Password)
}

// Connect opens the store connection. The handle is owned by the caller and
// passed explicitly to every store.
func Connect(params ConnectParams) (*gorm.DB, error) {
	db, err := Open(params.DSN())
	if err != nil {
		return nil, err
	}
	if params.DebugMode {
		db.Logger = logger.Default.LogMode(logger.Info)
		db = db.Debug()
	}
	if params.Migrate {
		if err = AutoMigrateDB(db); err != nil {
			return nil, err
		}
	}
	log.Info("Service connected to the database")
	return db, nil
}

func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gorm_logrus.New(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "database connection failed")
	}
	return db, nil
}

func PingDB(gdb *gorm.DB) error {
	db, err := gdb.DB()
	if err != nil {
		return err
	}
	if err = db.Ping(); err != nil {
		return err
	}
	return nil
}

func Close(gdb *gorm.DB) {
	db, err := gdb.DB()
	if err != nil {
		return
	}
	if err = db.Close(); err != nil {
		log.WithError(err).Warn("database close failed")
	}
}
