package iodb

import (
	"fmt"
	"runtime"

	"github.com/Aariz1001/carpulse-data/pkg/errcode"
	"github.com/gnames/gn"
)

func ConnectionError(
	host string, port int, database string, err error,
) error {
	msg := "Cannot connect to PostgreSQL at <em>%s:%d/%s</em>"
	vars := []any{host, port, database}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.DBConnectionError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot connect to %s:%d/%s: %w",
			fn, host, port, database, err),
	}
}

func NotConnectedError() error {
	msg := "Database is not connected"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: operator used before Connect", fn),
	}
}

func TableExistsCheckError(table string, err error) error {
	msg := "Cannot check if table <em>%s</em> exists"
	vars := []any{table}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.DBTableExistsCheckError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot check table %s: %w",
			fn, table, err),
	}
}

func TableCheckError(err error) error {
	msg := "Cannot verify database state"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.DBTableCheckError,
		Msg:  msg,
		Err: fmt.Errorf("from %s: cannot check database tables: %w",
			fn, err),
	}
}

func EmptyDatabaseError(host, database string) error {
	msg := "Database <em>%s</em> on <em>%s</em> has no tables, " +
		"run <em>carpulse create</em> first"
	vars := []any{database, host}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.DBEmptyDatabaseError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: database %s has no tables",
			fn, database),
	}
}
