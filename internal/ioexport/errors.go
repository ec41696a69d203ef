package ioexport

import (
	"fmt"
	"runtime"

	"github.com/Aariz1001/carpulse-data/pkg/errcode"
	"github.com/gnames/gn"
)

func CreateSnapshotError(path string, err error) error {
	msg := "Cannot create snapshot <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ExportCreateError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot create snapshot %s: %w",
			fn, path, err),
	}
}

func WriteSnapshotError(table string, err error) error {
	msg := "Cannot write <em>%s</em> into snapshot"
	vars := []any{table}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ExportWriteError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot write %s: %w",
			fn, table, err),
	}
}
