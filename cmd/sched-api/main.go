// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"sched/internal/config"
	"sched/internal/events"
	httptransport "sched/internal/http"
	"sched/internal/infra"
	"sched/internal/modules/appointment"
	"sched/internal/modules/earnings"
	"sched/internal/modules/rider"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	emitter := events.NewRedisEmitter(redisClient)

	earningsSvc := earnings.NewService(earnings.NewStore(dbPool), cfg.Earnings)
	riderSvc := rider.NewService(rider.NewStore(dbPool), redisClient)
	appointmentSvc := appointment.NewService(
		dbPool,
		appointment.NewStore(dbPool),
		riderSvc,
		earningsSvc,
		emitter,
	)

	handler := httptransport.NewRouter(httptransport.ServerDeps{
		Appointments: appointmentSvc,
		Riders:       riderSvc,
		Earnings:     earningsSvc,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
