package ioimport

import (
	"fmt"
	"runtime"

	"github.com/Aariz1001/carpulse-data/pkg/errcode"
	"github.com/gnames/gn"
)

func OpenFileError(path string, err error) error {
	msg := "Cannot open <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ImportReadError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot open %s: %w",
			fn, path, err),
	}
}

func ReadCSVError(err error) error {
	msg := "Cannot read CSV data"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ImportReadError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: cannot read csv: %w", fn, err),
	}
}

func MissingColumnsError() error {
	msg := "CSV header must contain <em>code</em> and " +
		"<em>description</em> columns"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ImportFormatError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: missing required columns", fn),
	}
}
