package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrServiceUnavailable 存储超时或不可达，统一映射为 503，不做自动重试
var ErrServiceUnavailable = errors.New("服务暂不可用，请稍后重试")

// PostgreSQL SQLSTATE
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeQueryCanceled       = "57014" // statement_timeout 触发
	codeAdminShutdown       = "57P01"
	codeCannotConnectNow    = "57P03"
)

// UniqueViolation 唯一约束冲突，Constraint 为触发冲突的索引名
type UniqueViolation struct {
	Constraint string
}

func (e *UniqueViolation) Error() string {
	return "唯一约束冲突: " + e.Constraint
}

// AsUniqueViolation 判断是否为唯一约束冲突（SQLSTATE 23505）
func AsUniqueViolation(err error) (*UniqueViolation, bool) {
	var uv *UniqueViolation
	if errors.As(err, &uv) {
		return uv, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return &UniqueViolation{Constraint: pgErr.ConstraintName}, true
	}
	return nil, false
}

// IsUniqueViolation 判断是否为指定索引上的唯一约束冲突；constraint 为空时匹配任意索引
func IsUniqueViolation(err error, constraint string) bool {
	uv, ok := AsUniqueViolation(err)
	if !ok {
		return false
	}
	return constraint == "" || uv.Constraint == constraint
}

// IsForeignKeyViolation 外键引用不存在
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

// IsUnavailable 判断是否为超时/连接类错误
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeQueryCanceled, codeAdminShutdown, codeCannotConnectNow:
			return true
		}
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
