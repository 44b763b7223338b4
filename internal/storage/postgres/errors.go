package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"secrethobby/backend/internal/storage"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

// classify 将 gorm 与驱动层错误映射为存储层哨兵错误。
// 唯一约束冲突 -> ErrDuplicate，外键缺失 -> ErrNotFound，其余均视为存储不可用。
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, storage.ErrDuplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, storage.ErrDuplicate)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, storage.ErrNotFound)
		}
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%s: %w", op, storage.ErrDuplicate)
		case mysqlNoReferencedRow:
			return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
	}

	// 部分驱动包装后丢失了具体类型，按消息兜底
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "unique constraint") {
		return fmt.Errorf("%s: %w", op, storage.ErrDuplicate)
	}

	return fmt.Errorf("%s: %w: %v", op, storage.ErrUnavailable, err)
}

// isConnectionError 判断是否为连接层面的故障
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
