package iostore

import (
	"fmt"
	"runtime"

	"github.com/Aariz1001/carpulse-data/pkg/errcode"
	"github.com/gnames/gn"
)

func NotConnectedError() error {
	msg := "Store used without database connection"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: store used before Connect", fn),
	}
}

func NotLoadedError() error {
	msg := "Store used before loading indices"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreLoadError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: store used before Load", fn),
	}
}

func LoadError(table string, err error) error {
	msg := "Cannot load <em>%s</em> from database"
	vars := []any{table}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreLoadError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot load %s: %w",
			fn, table, err),
	}
}

func InsertError(table string, err error) error {
	msg := "Cannot insert into <em>%s</em>"
	vars := []any{table}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreInsertError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot insert into %s: %w",
			fn, table, err),
	}
}

func UpdateError(table string, err error) error {
	msg := "Cannot update <em>%s</em>"
	vars := []any{table}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreUpdateError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot update %s: %w",
			fn, table, err),
	}
}

func InvalidDTCError(code string) error {
	msg := "Rejected malformed trouble code <em>%s</em>"
	vars := []any{code}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.StoreConstraintError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: malformed trouble code %q",
			fn, code),
	}
}
