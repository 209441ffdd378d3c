package main

import (
	"context"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"

	"quicksearch-backend/config"
	"quicksearch-backend/initializers"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	initializers.InitAllServices(ctx)

	// неудачный первый коннект не валит процесс: канал уже запланировал
	// переподключение с backoff
	err := initializers.Channel.Connect(ctx, config.Conf.Socket.UserID, config.Conf.Socket.Token)
	if err != nil {
		log.WithError(err).Error("Ошибка подключения к каналу событий, переподключение запущено")
	}

	// gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	log.Info("Gracefully shutting down...")
	cancel()
	initializers.Coordinator.Stop()
	initializers.Channel.Disconnect()
	log.Info("Gracefully shutting down finished")
}
