package expiryworker

import (
	"context"
	"time"

	"quicksearch-backend/config"
	"quicksearch-backend/lib/quicksearch/coordinator"
	baseworker "quicksearch-backend/lib/utils/base-worker"
)

// StartWorker периодическая проверка сроков предложений и кодов.
// Сроки проверяются и лениво при каждом обращении, воркер нужен только
// чтобы просроченное предложение погасло без действий пользователя.
func StartWorker(ctx context.Context, coord coordinator.Provider) {
	firstDelay := time.Duration(config.Conf.QuickSearch.ExpiryFirstDelaySec) * time.Second
	interval := time.Duration(config.Conf.QuickSearch.ExpirySweepSec) * time.Second
	i := &impl{
		BaseImpl: *baseworker.NewInstance("QuickSearchExpiryWorker", firstDelay, interval),
		coord:    coord,
	}
	go i.Run(ctx, i.handle)
}

type impl struct {
	baseworker.BaseImpl
	coord coordinator.Provider
}

func (i impl) handle(ctx context.Context) {
	i.coord.SweepExpired(ctx)
}
