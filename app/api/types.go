package api

import (
	"context"

	"github.com/dkotenko/newsmill/app/database"
	"github.com/dkotenko/newsmill/app/jobs"
	"github.com/dkotenko/newsmill/app/sources"
)

type TriggerInterface interface {
	Trigger(ctx context.Context, jobName, idempotencyKey string) (*jobs.Result, error)
}

var _ TriggerInterface = (*jobs.Bridge)(nil)

type Handler struct {
	bridge      TriggerInterface
	configCache *sources.ConfigCache
	sourceRepo  database.SourceRepository
	itemRepo    database.RawItemRepository
	articleRepo database.ArticleRepository
	runRepo     database.RunRepository
	usageRepo   database.UsageRepository
}

type TriggerRequest struct {
	Operation      string `json:"operation" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}
