package database

import (
	"strings"
	"testing"

	"github.com/amruthadental/clinic-backend/internal/config"
)

func TestMySQLDSN(t *testing.T) {
	cfg := config.Config{DBHost: "db", DBUser: "clinic", DBPass: "secret", DBName: "clinic"}
	dsn := mysqlDSN(cfg)
	if dsn != "clinic:secret@tcp(db:3306)/clinic?charset=utf8mb4&parseTime=true&loc=UTC" {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
}

func TestMySQLDSNWithTLS(t *testing.T) {
	cfg := config.Config{DBHost: "db", DBUser: "clinic", DBName: "clinic", DBTLS: "true"}
	if got := mysqlDSN(cfg); !strings.HasSuffix(got, "&tls=true") {
		t.Fatalf("expected tls parameter, got %s", got)
	}
}

func TestPostgresDSNPrefersURL(t *testing.T) {
	cfg := config.Config{DatabaseURL: "postgres://u:p@h/db", DBHost: "ignored"}
	if got := postgresDSN(cfg); got != cfg.DatabaseURL {
		t.Fatalf("expected DB_DSN to win, got %s", got)
	}

	cfg = config.Config{DBHost: "localhost", DBUser: "postgres", DBName: "clinic"}
	if got := postgresDSN(cfg); !strings.Contains(got, "port=5432") {
		t.Fatalf("expected default port, got %s", got)
	}
}

func TestUnsupportedDialect(t *testing.T) {
	if _, err := dialectorFor(config.Config{DBDialect: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported dialect")
	}
}
