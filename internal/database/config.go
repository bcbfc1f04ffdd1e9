package database

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config 数据库连接配置
type Config struct {
	// Driver: sqlite / postgres / mysql
	Driver   string `yaml:"driver" json:"driver" env:"DRIVER"`
	Host     string `yaml:"host" json:"host" env:"HOST"`
	Port     int    `yaml:"port" json:"port" env:"PORT"`
	User     string `yaml:"user" json:"user" env:"USER"`
	Password string `yaml:"password" json:"password" env:"PASSWORD"`
	// Name 为数据库名；sqlite 下为文件路径
	Name    string `yaml:"name" json:"name" env:"NAME"`
	SSLMode string `yaml:"ssl_mode" json:"ssl_mode" env:"SSL_MODE"`

	Pool PoolConfig `yaml:"pool" json:"pool" env:"POOL"`
}

// DefaultConfig 返回默认配置：本地 sqlite 文件
func DefaultConfig() Config {
	return Config{
		Driver: "sqlite",
		Name:   "./data/truffle/markers.db",
		Pool:   DefaultPoolConfig(),
	}
}

// DSN 根据驱动拼接连接串
func (c Config) DSN() (string, error) {
	switch strings.ToLower(c.Driver) {
	case "sqlite", "sqlite3":
		if c.Name == "" {
			return "", fmt.Errorf("sqlite requires a file name")
		}
		return c.Name, nil
	case "postgres", "postgresql", "pg":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, sslMode), nil
	case "mysql", "mariadb":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.Name), nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", c.Driver)
	}
}

// Dialector 返回对应驱动的 GORM Dialector
func (c Config) Dialector() (gorm.Dialector, error) {
	dsn, err := c.DSN()
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(c.Driver) {
	case "sqlite", "sqlite3":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql", "pg":
		return postgres.Open(dsn), nil
	default:
		return mysql.Open(dsn), nil
	}
}

// Open 打开数据库并包装为连接池管理器
func Open(cfg Config, logger *zap.Logger) (*PoolManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialector, err := cfg.Dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	pool := cfg.Pool
	if pool.MaxOpenConns == 0 {
		pool = DefaultPoolConfig()
	}
	// sqlite 单写者，避免 database is locked
	if d := strings.ToLower(cfg.Driver); d == "sqlite" || d == "sqlite3" {
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
		pool.ConnMaxLifetime = 0
		pool.ConnMaxIdleTime = 0
	}
	return NewPoolManager(db, pool, logger)
}
