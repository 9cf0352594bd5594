package chassis

import (
	"testing"
	"time"
)

func TestOptionsOverrideDefaults(t *testing.T) {
	app := New(
		WithProvider(ProviderConfig{CallTimeout: 3 * time.Second}),
		WithDispatch(DispatchConfig{QueueSize: 8, IdleTimeout: time.Minute}),
	)

	cfg := app.GetConfig()
	if cfg.Provider.CallTimeout != 3*time.Second {
		t.Errorf("provider call timeout = %s, want 3s", cfg.Provider.CallTimeout)
	}
	if cfg.Dispatch.QueueSize != 8 {
		t.Errorf("dispatch queue size = %d, want 8", cfg.Dispatch.QueueSize)
	}
	// 未覆盖的段保留默认值
	if cfg.Intent.Classifier != "rule" {
		t.Errorf("intent classifier = %q, want rule", cfg.Intent.Classifier)
	}
}
