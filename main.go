package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	mongoutil "RelayProject/data/database/mgo/mongoutil"
	"RelayProject/global/config"
	"RelayProject/logger"
	"RelayProject/module/wallet"
	walletsvc "RelayProject/module/wallet/service"
	ka "RelayProject/service/dispatcher/kafka"
	mgoSrv "RelayProject/service/mgo"
	"RelayProject/service/relay"
	"RelayProject/service/storage"
	"RelayProject/tools/safe"
	"RelayProject/tools/security"
)

func main() {
	config.Load()
	config.ConfigAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgoSrv.StartAsync(ctx, &mongoutil.Config{
		Uri:         config.Global.MongoURI,
		Database:    config.Global.MongoDatabase,
		Username:    config.Global.MongoUsername,
		Password:    config.Global.MongoPassword,
		MaxPoolSize: 10,
	})
	safe.Go(func() {
		if err := mgoSrv.WaitReady(ctx, mgoSrv.Manager()); err != nil {
			logger.Warnf("[Mongo] wait ready: %v (last err: %v)", err, mgoSrv.Err())
			return
		}
		logger.Infof("[Mongo] connected database=%s", config.Global.MongoDatabase)
	})
	defer func() { _ = storage.CloseRedis() }()
	defer ka.CloseProducer()

	reg := relay.NewRegistry(relay.Config{
		SweepEvery: config.Global.CleanupInterval(),
	})
	defer reg.Close()

	router := relay.NewRouter(reg, relay.Hooks{
		OnRegister:   presenceOnline,
		OnDisconnect: presenceOffline,
		OnDeliver:    ka.JournalDelivery,
	})

	tokenOpts := security.DefaultOptions(config.GetJwtSecret())
	srv := relay.NewServer(router, relay.ServerConf{
		TokenOpts: &tokenOpts,
	})
	defer srv.Close()

	store := walletsvc.NewStore(mgoSrv.TryGetDB, tokenOpts)
	walletH := wallet.NewHandler(store)

	r := gin.Default()
	srv.RegisterRoutes(r)
	walletH.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", config.Global.Port)
	logger.Infof("> Ready on http://localhost%s", addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("server exited: %v", err)
	}
}

// presence 镜像只是旁路：redis 没配置就静默跳过，路由从不读它
func presenceOnline(userID, sessionID, role string) {
	if !storage.Ready() {
		return
	}
	if err := storage.PresenceOnline(userID, sessionID, config.Global.PresenceTTL); err != nil {
		logger.Warnf("[Presence] online user=%s: %v", userID, err)
	}
}

func presenceOffline(userID, sessionID string) {
	if !storage.Ready() {
		return
	}
	if err := storage.PresenceOffline(userID); err != nil {
		logger.Warnf("[Presence] offline user=%s: %v", userID, err)
	}
}
