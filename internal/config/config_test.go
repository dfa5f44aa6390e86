package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "CHAT_HISTORY_FILE", "ANON_STORE", "REDIS_ADDR", "REDIS_DB", "REDIS_KEY", "AI_HISTORY_LIMIT", "METRICS_ENABLED", "ARK_STREAM"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Server.Addr)
	}
	if !cfg.Server.MetricsEnabled {
		t.Fatal("metrics should be enabled by default")
	}
	if cfg.Storage.DBPath != "users.db" || cfg.Storage.HistoryFile != "chat_history.json" {
		t.Fatalf("unexpected storage paths %+v", cfg.Storage)
	}
	if cfg.Storage.AnonStore != AnonStoreFile {
		t.Fatalf("expected file anon store, got %q", cfg.Storage.AnonStore)
	}
	if cfg.Storage.RedisKey != "explainer:chat_history" {
		t.Fatalf("unexpected redis key %q", cfg.Storage.RedisKey)
	}
	if cfg.AI.HistoryLimit != 10 {
		t.Fatalf("expected history limit 10, got %d", cfg.AI.HistoryLimit)
	}
}

func TestLoadServerAddr(t *testing.T) {
	cases := map[string]string{
		"9000":           ":9000",
		":9001":          ":9001",
		"127.0.0.1:9002": "127.0.0.1:9002",
	}
	for in, want := range cases {
		t.Setenv("PORT", in)
		cfg, err := loadServerConfig()
		if err != nil {
			t.Fatalf("PORT=%q err: %v", in, err)
		}
		if cfg.Addr != want {
			t.Fatalf("PORT=%q expected %q, got %q", in, want, cfg.Addr)
		}
	}

	t.Setenv("PORT", "80 80")
	if _, err := loadServerConfig(); err == nil {
		t.Fatal("expected error for PORT with spaces")
	}
}

func TestLoadStorageRedis(t *testing.T) {
	t.Setenv("ANON_STORE", "redis")
	t.Setenv("REDIS_ADDR", "")
	if _, err := loadStorageConfig(); err == nil {
		t.Fatal("expected error when REDIS_ADDR is missing")
	}

	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	cfg, err := loadStorageConfig()
	if err != nil {
		t.Fatalf("loadStorageConfig err: %v", err)
	}
	if cfg.AnonStore != AnonStoreRedis || cfg.RedisDB != 3 {
		t.Fatalf("unexpected storage config %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"ANON_STORE":       "s3",
		"REDIS_DB":         "zero",
		"AI_HISTORY_LIMIT": "many",
		"METRICS_ENABLED":  "maybe",
		"ARK_TEMPERATURE":  "hot",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestAIConfigEnabled(t *testing.T) {
	if (AIConfig{APIKey: "k"}).Enabled() {
		t.Fatal("model is required")
	}
	if !(AIConfig{APIKey: "k", Model: "m"}).Enabled() {
		t.Fatal("api key + model should enable")
	}
	if !(AIConfig{AccessKey: "a", SecretKey: "s", Model: "m"}).Enabled() {
		t.Fatal("ak/sk + model should enable")
	}
}
