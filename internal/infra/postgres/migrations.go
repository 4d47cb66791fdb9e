package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"

	// Register pgx stdlib driver for database/sql usage in migrations.
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS
var gooseMu sync.Mutex

// dimensionEnv は embedding 列の次元数を固定するマイグレーションが参照する変数名
// goose の ENVSUB はプロセスの環境変数しか参照しない
const dimensionEnv = "EMBEDDING_DIMENSION"

// ApplyMigrations は埋め込み SQL を goose で適用し、適用後のスキーマバージョンを返します
// dsn は pgx stdlib ドライバ（"pgx"）が解釈できる接続文字列
// dimension は embedding 列に固定する次元数。異なる次元のベクトルが既にある場合は失敗する
func ApplyMigrations(ctx context.Context, dsn string, dimension int) (int64, error) {
	if dimension <= 0 {
		return 0, fmt.Errorf("embedding dimension must be positive: %d", dimension)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, fmt.Errorf("open db for migrations: %w", err)
	}
	defer db.Close()

	gooseMu.Lock()
	defer gooseMu.Unlock()

	restore := setEnv(dimensionEnv, strconv.Itoa(dimension))
	defer restore()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return 0, fmt.Errorf("migrate up: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return version, nil
}

func setEnv(key, value string) func() {
	prev, had := os.LookupEnv(key)
	_ = os.Setenv(key, value)
	return func() {
		if had {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	}
}
