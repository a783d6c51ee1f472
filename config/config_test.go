package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type testConfig struct {
	Env  string `env:"NODE_ENV"`
	Port int    `env:"PORT"`
	JWT  struct {
		Secret string        `env:"JWT_SECRET"`
		Expire time.Duration `env:"JWT_EXPIRE"`
	}
	Upload struct {
		MaxSize int64 `env:"MAX_FILE_UPLOAD"`
		Debug   bool  `env:"UPLOAD_DEBUG"`
	}
	Origins []string `env:"CORS_ORIGINS"`
	name    string
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"NODE_ENV":        "production",
		"PORT":            "5000",
		"JWT_SECRET":      "s3cret",
		"JWT_EXPIRE":      "30d",
		"MAX_FILE_UPLOAD": "1000000",
		"CORS_ORIGINS":    "https://a.io, https://b.io",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := testConfig{Env: "development", Port: 8080}
	cfg.Upload.Debug = true
	if err := applyEnv(reflect.ValueOf(&cfg), lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Env != "production" || cfg.Port != 5000 || cfg.JWT.Secret != "s3cret" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.JWT.Expire != 30*24*time.Hour || cfg.Upload.MaxSize != 1000000 || !cfg.Upload.Debug {
		t.Errorf("unexpected config %+v", cfg)
	}
	if len(cfg.Origins) != 2 || cfg.Origins[1] != "https://b.io" {
		t.Errorf("origins = %v", cfg.Origins)
	}
	env["PORT"] = "http"
	if err := applyEnv(reflect.ValueOf(&cfg), lookup); err == nil {
		t.Error("a malformed int is expected to fail")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30d", want: 30 * 24 * time.Hour},
		{in: "10m", want: 10 * time.Minute},
		{in: "xd", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.env")
	if err := os.WriteFile(path, []byte("DEVCAMPER_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEVCAMPER_TEST_VALUE", "")
	os.Unsetenv("DEVCAMPER_TEST_VALUE")
	if err := loadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("DEVCAMPER_TEST_VALUE"); got != "from-file" {
		t.Errorf("got %q", got)
	}
	if err := loadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("a missing env file is not an error, got %v", err)
	}
	if got := envPath(filepath.Join(dir, "config.yaml")); got != path {
		t.Errorf("envPath = %s", got)
	}
	if got := envPath("etcd://127.0.0.1:2379/config"); got != "" {
		t.Errorf("envPath = %s", got)
	}
}
