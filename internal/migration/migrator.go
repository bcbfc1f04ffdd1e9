package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/BaSui01/truffle/internal/database"
)

//go:embed migrations
var migrationsFS embed.FS

// DefaultTable 版本表名
const DefaultTable = "truffle_schema_migrations"

// Dialect 迁移方言
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect 解析驱动名
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", driver)
	}
}

// URL 按方言拼接 golang-migrate 使用的连接串
func URL(d Dialect, cfg database.Config) string {
	switch d {
	case DialectPostgres:
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Path:     "/" + cfg.Name,
			RawQuery: "sslmode=" + sslMode,
		}
		return u.String()
	case DialectMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	case DialectSQLite:
		return fmt.Sprintf("file:%s?mode=rwc", cfg.Name)
	default:
		return ""
	}
}

// Status 单个迁移文件的状态
type Status struct {
	Version uint
	Name    string
	Applied bool
	Dirty   bool
}

// Migrator 封装 golang-migrate，管理 marker 表结构
type Migrator struct {
	dialect Dialect
	m       *migrate.Migrate
	db      *sql.DB
	logger  *zap.Logger
}

// New 根据数据库配置创建迁移器
func New(cfg database.Config, logger *zap.Logger) (*Migrator, error) {
	d, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return Open(d, URL(d, cfg), logger)
}

// Open 使用显式连接串创建迁移器
func Open(d Dialect, dsn string, logger *zap.Logger) (*Migrator, error) {
	if dsn == "" {
		return nil, errors.New("database URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	driverName := string(d)
	if d == DialectSQLite {
		driverName = "sqlite3"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	mg := &Migrator{
		dialect: d,
		db:      db,
		logger:  logger.With(zap.String("component", "migration"), zap.String("dialect", string(d))),
	}
	if err := mg.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize migrator: %w", err)
	}
	return mg, nil
}

func (mg *Migrator) init() error {
	var (
		driver migratedb.Driver
		err    error
	)
	switch mg.dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(mg.db, &postgres.Config{MigrationsTable: DefaultTable})
	case DialectMySQL:
		driver, err = mysql.WithInstance(mg.db, &mysql.Config{MigrationsTable: DefaultTable})
	case DialectSQLite:
		driver, err = sqlite3.WithInstance(mg.db, &sqlite3.Config{MigrationsTable: DefaultTable})
	default:
		return fmt.Errorf("unsupported database type: %s", mg.dialect)
	}
	if err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, mg.dir())
	if err != nil {
		return err
	}
	mg.m, err = migrate.NewWithInstance("iofs", src, string(mg.dialect), driver)
	if err != nil {
		return err
	}
	mg.m.LockTimeout = 15 * time.Second
	return nil
}

func (mg *Migrator) dir() string {
	return path.Join("migrations", string(mg.dialect))
}

// Up 应用全部未执行的迁移
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	v, _, _ := mg.Version()
	mg.logger.Info("migrations applied", zap.Uint("version", v))
	return nil
}

// Down 回滚全部迁移
func (mg *Migrator) Down() error {
	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	mg.logger.Info("migrations rolled back")
	return nil
}

// Steps 正数前进、负数回滚 n 步
func (mg *Migrator) Steps(n int) error {
	if err := mg.m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration steps failed: %w", err)
	}
	return nil
}

// Version 当前版本；未执行任何迁移时返回 0
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get version: %w", err)
	}
	return v, dirty, nil
}

// Status 列出内嵌迁移文件及其应用状态
func (mg *Migrator) Status() ([]Status, error) {
	current, dirty, err := mg.Version()
	if err != nil {
		return nil, err
	}
	files, err := available(migrationsFS, mg.dir())
	if err != nil {
		return nil, err
	}
	for i := range files {
		files[i].Applied = files[i].Version <= current
		files[i].Dirty = dirty && files[i].Version == current
	}
	return files, nil
}

// Close 释放 golang-migrate 持有的源与连接
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// available 解析 <version>_<name>.up.sql 文件名
func available(fsys fs.FS, dir string) ([]Status, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var out []Status
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		version, rest, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(version, 10, 32)
		if err != nil {
			continue
		}
		out = append(out, Status{Version: uint(v), Name: strings.TrimSuffix(rest, ".up.sql")})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
