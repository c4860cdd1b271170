package db

import (
	"fmt"
	"net"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/zulandar/assignyard/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a MySQL DSN from database settings. An empty name connects to
// the server without selecting a database.
func DSN(c config.DatabaseConfig) string {
	mc := gomysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = c.Name
	mc.ParseTime = true
	return mc.FormatDSN()
}

// Connect opens a GORM connection to the configured database.
func Connect(c config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.Driver {
	case "mysql":
		dialector = mysql.Open(DSN(c))
	case "sqlite", "":
		dialector = sqlite.Open(c.Path)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", c.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect %s: %w", describe(c), err)
	}
	if c.Driver != "mysql" {
		// A single connection keeps ":memory:" databases shared and
		// serializes sqlite writers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("db: connect %s: %w", describe(c), err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// CreateDatabase creates the configured MySQL database if it doesn't already
// exist. It is a no-op for sqlite, which creates its file on first use.
func CreateDatabase(c config.DatabaseConfig) error {
	if c.Driver != "mysql" {
		return nil
	}
	admin := c
	admin.Name = ""
	adminDB, err := gorm.Open(mysql.Open(DSN(admin)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("db: admin connect %s: %w", describe(admin), err)
	}
	if sqlDB, err := adminDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	sql := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", c.Name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: create database %s: %w", c.Name, err)
	}
	return nil
}

func describe(c config.DatabaseConfig) string {
	if c.Driver == "mysql" {
		return fmt.Sprintf("mysql %s:%d/%s", c.Host, c.Port, c.Name)
	}
	return "sqlite " + c.Path
}
