package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"secrethobby/backend/internal/storage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"记录不存在", gorm.ErrRecordNotFound, storage.ErrNotFound},
		{"gorm 唯一键", gorm.ErrDuplicatedKey, storage.ErrDuplicate},
		{"postgres 唯一约束", &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_alias"}, storage.ErrDuplicate},
		{"postgres 外键", &pgconn.PgError{Code: "23503"}, storage.ErrNotFound},
		{"包装后的 postgres 唯一约束", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), storage.ErrDuplicate},
		{"mysql 重复条目", &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'fox'"}, storage.ErrDuplicate},
		{"mysql 外键", &mysqldriver.MySQLError{Number: 1452}, storage.ErrNotFound},
		{"消息兜底", errors.New(`ERROR: duplicate key value violates unique constraint "users_alias_key"`), storage.ErrDuplicate},
		{"连接失败", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), storage.ErrUnavailable},
		{"超时", context.DeadlineExceeded, storage.ErrUnavailable},
		{"其他 postgres 错误", &pgconn.PgError{Code: "57P01"}, storage.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify("op", tt.err), tt.want)
		})
	}

	assert.NoError(t, classify("op", nil))
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, isConnectionError(context.Canceled))
	assert.True(t, isConnectionError(&pgconn.ConnectError{}))
	assert.False(t, isConnectionError(errors.New("syntax error")))
	assert.False(t, isConnectionError(nil))
}
