package initializers

import (
	"context"

	"approvals-backend/config"
	"approvals-backend/db"
	approvalhandler "approvals-backend/lib/approval"
	approvalnotify "approvals-backend/lib/approval/notify"
	"approvals-backend/lib/approval/permission"
	approvalstore "approvals-backend/lib/approval/store"
	"approvals-backend/lib/directory"
	directorystore "approvals-backend/lib/directory/store"
	"approvals-backend/lib/entity"
	xlsexport "approvals-backend/lib/export/xls"
	"approvals-backend/lib/membership"
	"approvals-backend/lib/tracing"
	connectionhub "approvals-backend/lib/ws/hub/connection-hub"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const serviceVersion = "1.0.0"

// Services holds everything the HTTP layer needs. Nothing here is a package level singleton.
type Services struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Hub       connectionhub.Provider
	Approvals approvalhandler.Provider
}

func InitAllServices(ctx context.Context, conf *config.Configuration) (*Services, error) {
	if *conf.Tracing.Enabled {
		if err := tracing.Init(conf.Tracing.ServiceName, serviceVersion, conf.Tracing.OutputFile); err != nil {
			log.WithError(err).Warn("tracing is disabled")
		}
	}

	gdb, err := InitDBConnection(conf)
	if err != nil {
		return nil, err
	}
	services := &Services{
		DB:  gdb,
		Hub: connectionhub.NewHub(),
	}

	users, err := directory.NewHandler(directorystore.NewInstance(gdb), conf.Approval.DirectoryCacheSize)
	if err != nil {
		services.Close()
		return nil, err
	}
	notifiers := []approvalnotify.Provider{
		approvalnotify.NewLogNotifier(),
		approvalnotify.NewPushNotifier(services.Hub),
		approvalnotify.NewEmailNotifier(InitSmtp(conf), users),
	}
	if conf.Redis.URL != "" {
		services.Redis, err = approvalnotify.NewRedisClient(ctx, conf.Redis.URL)
		if err != nil {
			log.WithError(err).Warn("redis is unavailable, approval events are not published")
		} else {
			notifiers = append(notifiers, approvalnotify.NewRedisPublisher(services.Redis, conf.Redis.Channel))
		}
	}

	members := membership.NewInstance(gdb)
	services.Approvals = approvalhandler.NewHandler(approvalhandler.Deps{
		Store:    approvalstore.NewInstance(gdb),
		Gate:     permission.NewGate(members),
		Users:    users,
		Entities: entity.NewCatalogRegistry(gdb),
		Members:  members,
		Notifier: approvalnotify.NewMulti(notifiers...),
		Exporter: xlsexport.NewExporter(),
	}, approvalhandler.Config{
		StoreTimeout:     conf.StoreTimeout(),
		GatewayTimeout:   conf.GatewayTimeout(),
		NotifyTimeout:    conf.NotifyTimeout(),
		CommentMaxLength: conf.Approval.CommentMaxLength,
	})
	return services, nil
}

func (s *Services) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.WithError(err).Warn("redis close failed")
		}
	}
	if s.DB != nil {
		db.Close(s.DB)
	}
}
