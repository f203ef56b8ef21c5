package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"approvals-backend/config"
	apiv1 "approvals-backend/controllers/v1"
	"approvals-backend/fiberlog"
	"approvals-backend/initializers"
	"approvals-backend/lib/tracing"
	"approvals-backend/lib/ws"
	"approvals-backend/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberRecover "github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	conf, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("unable to load configuration")
	}
	loggerConfig := initializers.InitLogger(conf.App.LogLevel)

	services, err := initializers.InitAllServices(ctx, conf)
	if err != nil {
		log.WithError(err).Fatal("unable to init services")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: conf.App.BodyLimit,
	})
	app.Use(fiberRecover.New())

	//api
	apiV1 := fiber.New()
	apiV1.Use(fiberlog.New(*loggerConfig))
	app.Mount("/api/v1", apiV1)
	apiV1.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT",
	}))
	apiV1.Use(middleware.ErrLog())
	apiV1.Use(middleware.WithBodyLimit(int64(conf.App.BodyLimit)))
	apiV1.Use(middleware.AuthorizationRequired(conf.Auth.JWTSecret))
	apiV1.Use(middleware.UserRequired())
	apiv1.InitApprovalApiRouters(apiV1, services.Approvals)

	//push
	wsRouter := app.Group("/ws")
	wsRouter.Use(middleware.AuthorizationRequired(conf.Auth.JWTSecret))
	ws.InitWs(wsRouter, services.Hub)

	// gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-c:
		case <-ctx.Done():
			return
		}
		log.Info("Gracefully shutting down...")
		cancel()
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("Error when try gracefully shutting down")
		}
		log.Info("Gracefully shutting down finished")
	}()

	// run HTTP server
	if err := app.Listen(fmt.Sprintf("%s:%d", conf.App.ListenAddr, conf.App.Port)); err != nil {
		log.WithError(err).Error("HTTP server stopped with error")
	}
	cancel()
	wg.Wait()

	services.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracing shutdown failed")
	}
	log.Info("HTTP server successfully stopped")
}
