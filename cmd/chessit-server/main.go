package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chessit-app/chessit-server/internal/archive"
	"github.com/chessit-app/chessit-server/internal/board"
	"github.com/chessit-app/chessit-server/internal/broadcast"
	appcfg "github.com/chessit-app/chessit-server/internal/config"
	"github.com/chessit-app/chessit-server/internal/gateway"
	"github.com/chessit-app/chessit-server/internal/msgcat"
	"github.com/chessit-app/chessit-server/internal/obslog"
	"github.com/chessit-app/chessit-server/internal/ops"
	"github.com/chessit-app/chessit-server/internal/room"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}
	defer obslog.Sync()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		obslog.L().Fatal("redis url error", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pctx).Err(); err != nil {
		pcancel()
		obslog.L().Fatal("redis connect error", zap.Error(err))
	}
	pcancel()

	msgs, err := msgcat.New(cfg.MsgOverrideDir)
	if err != nil {
		obslog.L().Fatal("message catalog error", zap.Error(err))
	}

	bus := broadcast.NewBus(rdb)
	reg := room.NewRegistry(bus, msgs, room.WithDefaultClock(cfg.DefaultClockSeconds))
	coord := room.NewCoordinator(reg)
	gate := room.NewGate(reg, coord)

	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			obslog.L().Fatal("archive init error", zap.Error(err))
		}
		reg.AttachArchive(repo)
	}

	hub := gateway.NewHub()
	gw := gateway.NewServer(coord, gate, hub, cfg.AllowedOrigins)

	busCtx, busCancel := context.WithCancel(context.Background())
	go func() {
		if err := bus.Run(busCtx, gw.Dispatch); err != nil && !errors.Is(err, context.Canceled) {
			obslog.L().Error("broadcast loop exited", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.ServeWS)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		obslog.L().Info("listen", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("listen error", zap.Error(err))
		}
	}()

	var opsSrv *ops.Server
	if cfg.OpsAddr != "" {
		opsSrv = ops.NewServer(reg, board.NewRenderer())
		go func() {
			if err := opsSrv.ListenAndServe(cfg.OpsAddr); err != nil {
				obslog.L().Error("ops listen error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	obslog.L().Info("shutting down")

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	_ = httpSrv.Shutdown(shCtx)
	shCancel()
	if opsSrv != nil {
		_ = opsSrv.Shutdown()
	}
	busCancel()
	reg.Shutdown()
	if repo != nil {
		_ = repo.Close()
	}
	_ = rdb.Close()
}
