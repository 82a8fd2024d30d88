package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SERVICE_NAME", "customer-service")
	t.Setenv("ENV", "production")
	t.Setenv("S3_BUCKET", "customer-images")
	t.Setenv("TRACING_ENABLED", "false")
	t.Setenv("PROFILING_ENABLED", "false")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg := Load()

	if cfg.Storage.Backend != BackendDynamoDB {
		t.Fatalf("backend = %q, want %q", cfg.Storage.Backend, BackendDynamoDB)
	}
	if cfg.Storage.Table != "customers" {
		t.Fatalf("table = %q, want customers", cfg.Storage.Table)
	}
	if cfg.Storage.Region != "ap-southeast-1" {
		t.Fatalf("region = %q", cfg.Storage.Region)
	}
	if cfg.Storage.Endpoint != "" {
		t.Fatalf("production endpoint = %q, want empty", cfg.Storage.Endpoint)
	}
	if cfg.Blob.PublicDomain != "s3.ap-southeast-1.amazonaws.com" {
		t.Fatalf("public domain = %q", cfg.Blob.PublicDomain)
	}
	if got := cfg.GetShutdownTimeoutDuration(); got != 10*time.Second {
		t.Fatalf("shutdown timeout = %v, want 10s", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestLoadDevelopmentUsesLocalDynamo(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ENV", "development")

	cfg := Load()
	if cfg.Storage.Endpoint != defaultDynamoDBDevEndpoint {
		t.Fatalf("endpoint = %q, want %q", cfg.Storage.Endpoint, defaultDynamoDBDevEndpoint)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("IsDevelopment() = false")
	}

	t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")
	if got := Load().Storage.Endpoint; got != "http://localhost:8000" {
		t.Fatalf("override endpoint = %q", got)
	}
}

func TestLoadUnsetEnvIsProduction(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ENV", "")
	t.Setenv("DYNAMODB_ENDPOINT", "")

	cfg := Load()
	if cfg.Service.Env != "production" {
		t.Fatalf("env = %q, want production", cfg.Service.Env)
	}
	if cfg.IsDevelopment() {
		t.Fatal("IsDevelopment() = true with ENV unset")
	}
	if cfg.Storage.Endpoint != "" {
		t.Fatalf("endpoint = %q, want empty", cfg.Storage.Endpoint)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing bucket",
			env:     map[string]string{"S3_BUCKET": ""},
			wantErr: "S3_BUCKET is required",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"STORAGE_BACKEND": "mongo"},
			wantErr: "STORAGE_BACKEND must be one of",
		},
		{
			name:    "postgres without host",
			env:     map[string]string{"STORAGE_BACKEND": "postgres"},
			wantErr: "DB_HOST is required",
		},
		{
			name: "postgres with full database config",
			env: map[string]string{
				"STORAGE_BACKEND": "Postgres",
				"DB_HOST":         "db",
				"DB_NAME":         "customers",
				"DB_USER":         "app",
				"DB_PASSWORD":     "secret",
			},
		},
		{
			name: "dynamodb ignores partial database config",
			env:  map[string]string{"DB_HOST": "db"},
		},
		{
			name:    "postgres with partial database config",
			env:     map[string]string{"STORAGE_BACKEND": "postgres", "DB_HOST": "db"},
			wantErr: "DB_NAME is required",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"LOG_LEVEL": "verbose"},
			wantErr: "LOG_LEVEL must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := Load().Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvDurationSecondsWithMax(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 5},
		{"20s", 20},
		{"1m", 5},
		{"garbage", 5},
		{"-3s", 5},
	}
	for _, tt := range tests {
		t.Setenv("READINESS_DRAIN_DELAY", tt.value)
		if got := getEnvDurationSecondsWithMax("READINESS_DRAIN_DELAY", 5, 30); got != tt.want {
			t.Fatalf("%q: got %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestBuildDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", Name: "customers", User: "app", Password: "pw", SSLMode: "disable", MaxConnections: 10}
	want := "postgresql://app:pw@db:5432/customers?sslmode=disable&pool_max_conns=10"
	if got := db.BuildDSN(); got != want {
		t.Fatalf("BuildDSN() = %q, want %q", got, want)
	}
}

func TestLoadDatabasePoolSettings(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_POOL_MAX_CONNECTIONS", "40")
	t.Setenv("DB_POOL_MODE", "transaction")
	t.Setenv("DB_POOLER_TYPE", "pgcat")

	db := Load().Database
	if db.MaxConnections != 40 || db.PoolMode != "transaction" || db.PoolerType != "pgcat" {
		t.Fatalf("unexpected pool settings %+v", db)
	}
}
