package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestGetPanicsWhenUnloaded(t *testing.T) {
	old := globalCfg
	globalCfg = nil
	defer func() {
		globalCfg = old
		if r := recover(); r == nil {
			t.Error("Get should panic when configuration is not loaded")
		}
	}()
	Get()
}

func TestSetAndGet(t *testing.T) {
	old := globalCfg
	defer func() { globalCfg = old }()

	cfg := &Cfg{
		Port:              "8080",
		WorkerCount:       3,
		SchedulerInterval: 1800,
		BatchSize:         20,
		RateLimit:         30,
		RateWindow:        60,
		OpenAIModel:       "gpt-4o-mini",
		UserAgent:         "Test Agent",
	}
	Set(cfg)

	got := Get()
	if got.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", got.Port)
	}
	if got.WorkerCount != 3 {
		t.Errorf("Expected worker count 3, got %d", got.WorkerCount)
	}
	if got.BatchSize != 20 {
		t.Errorf("Expected batch size 20, got %d", got.BatchSize)
	}
	if got.RateLimit != 30 || got.RateWindow != 60 {
		t.Errorf("Unexpected rate limit settings: %d/%d", got.RateLimit, got.RateWindow)
	}
	if got.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("Expected model 'gpt-4o-mini', got '%s'", got.OpenAIModel)
	}
}
