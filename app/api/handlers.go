package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkotenko/newsmill/app/database"
	"github.com/dkotenko/newsmill/app/jobs"
	"github.com/dkotenko/newsmill/app/sources"
)

func NewHandler(bridge TriggerInterface, configCache *sources.ConfigCache,
	sourceRepo database.SourceRepository, itemRepo database.RawItemRepository,
	articleRepo database.ArticleRepository, runRepo database.RunRepository,
	usageRepo database.UsageRepository) *Handler {
	return &Handler{
		bridge:      bridge,
		configCache: configCache,
		sourceRepo:  sourceRepo,
		itemRepo:    itemRepo,
		articleRepo: articleRepo,
		runRepo:     runRepo,
		usageRepo:   usageRepo,
	}
}

// Trigger accepts an operation name and optional idempotency key and
// hands it to the job bridge. Replayed keys come back as duplicates,
// not errors.
func (h *Handler) Trigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.bridge.Trigger(c.Request.Context(), req.Operation, req.IdempotencyKey)
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownJob) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "Unknown operation",
				"operations": []string{jobs.JobSyncNews, jobs.JobProcessRaw, jobs.JobTelegramPost},
			})
			return
		}
		slog.Error("Trigger failed", "operation", req.Operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to trigger operation"})
		return
	}

	status := http.StatusAccepted
	if !result.Queued {
		status = http.StatusOK
	}

	c.JSON(status, gin.H{
		"operation": req.Operation,
		"queued":    result.Queued,
		"mode":      result.Mode,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetCount(); err == nil {
		health["sources"] = sourceCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if total, unprocessed, err := h.itemRepo.GetCounts(); err == nil {
		stats["raw_items"] = map[string]interface{}{
			"total":       total,
			"unprocessed": unprocessed,
		}
	}

	if articleCount, err := h.articleRepo.GetCount(); err == nil {
		stats["articles"] = articleCount
	}

	if sourceCount, err := h.sourceRepo.GetCount(); err == nil {
		stats["sources"] = sourceCount
	}

	c.JSON(http.StatusOK, stats)
}

// ListRuns returns recent pipeline runs, newest first.
func (h *Handler) ListRuns(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 20)

	runs, err := h.runRepo.GetRecent(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		out = append(out, map[string]interface{}{
			"id":              run.ID,
			"status":          run.Status,
			"started_at":      run.StartedAt,
			"completed_at":    run.CompletedAt,
			"items_found":     run.ItemsFound,
			"items_processed": run.ItemsProcessed,
			"error_count":     run.ErrorCount,
			"errors":          run.Errors,
			"duration_ms":     run.DurationMs,
			"total_cost":      run.TotalCost,
			"total_tokens":    run.TotalTokens,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"runs":  out,
		"total": len(out),
	})
}

// GetRun returns one pipeline run by id.
func (h *Handler) GetRun(c *gin.Context) {
	runID := c.Param("id")

	run, err := h.runRepo.GetByID(runID)
	if err != nil {
		slog.Error("Database error", "operation", "get_run", "run_id", runID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetUsage returns recent AI usage records with an aggregate cost.
func (h *Handler) GetUsage(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 50)

	records, err := h.usageRepo.GetRecent(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_usage", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	totalCost := 0.0
	totalTokens := 0
	out := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		totalCost += record.Cost
		totalTokens += record.PromptTokens + record.CompletionTokens
		out = append(out, map[string]interface{}{
			"id":                record.ID,
			"article_id":        record.ArticleID,
			"model":             record.Model,
			"operation":         record.Operation,
			"prompt_tokens":     record.PromptTokens,
			"completion_tokens": record.CompletionTokens,
			"cost":              record.Cost,
			"created_at":        record.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"records":      out,
		"total":        len(out),
		"total_cost":   totalCost,
		"total_tokens": totalTokens,
	})
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 500 {
		return fallback
	}
	return limit
}
