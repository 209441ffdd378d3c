package initializers

import (
	"context"
	"time"

	"quicksearch-backend/config"
	"quicksearch-backend/db"
	"quicksearch-backend/lib/notification"
	contextstore "quicksearch-backend/lib/quicksearch/context-store"
	"quicksearch-backend/lib/quicksearch/coordinator"
	expiryworker "quicksearch-backend/lib/quicksearch/expiry-worker"
	proofarchive "quicksearch-backend/lib/quicksearch/proof-archive"
	"quicksearch-backend/lib/wallet"
	wschannel "quicksearch-backend/lib/ws/channel"
)

var (
	Channel     wschannel.Provider
	Coordinator coordinator.Provider
)

func InitAllServices(ctx context.Context) {
	InitLogger()
	config.InitConfig()
	InitDBConnection()
	InitS3()
	InitSmtp()

	Channel = wschannel.NewChannel(wschannel.Options{
		BaseUrl:       config.Conf.Socket.BaseUrl,
		ReconnectBase: time.Duration(config.Conf.Socket.ReconnectBaseMs) * time.Millisecond,
		ReconnectMax:  time.Duration(config.Conf.Socket.ReconnectMaxMs) * time.Millisecond,
		MaxAttempts:   config.Conf.Socket.ReconnectAttempts,
	}, nil)

	walletClient := wallet.NewClient(
		config.Conf.Wallet.BaseUrl,
		config.Conf.Wallet.ApiKey,
		time.Duration(config.Conf.Wallet.TimeoutMs)*time.Millisecond,
	)

	Coordinator = coordinator.NewCoordinator(
		Channel,
		notification.NewHandler(config.Conf.Smtp.EmailFrom, nil),
		walletClient,
		contextstore.NewInstance(db.DB),
		proofarchive.NewInstance(),
		coordinator.Options{
			OfferTTL: time.Duration(config.Conf.QuickSearch.OfferTTLMin) * time.Minute,
			CodeTTL:  time.Duration(config.Conf.QuickSearch.CodeTTLMin) * time.Minute,
		},
	)
	Coordinator.Start()

	go initWorkers(ctx)
}

func initWorkers(ctx context.Context) {
	// Задача гашения просроченных предложений
	expiryworker.StartWorker(ctx, Coordinator)
}
