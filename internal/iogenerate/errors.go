package iogenerate

import (
	"fmt"
	"runtime"

	"github.com/Aariz1001/carpulse-data/pkg/errcode"
	"github.com/gnames/gn"
)

func CatalogError(err error) error {
	msg := "Cannot load the vehicle catalog"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.BuildCatalogError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: %w", fn, err),
	}
}

func SelectionError() error {
	msg := "No manufacturers selected, " +
		"use <em>--makes</em>, <em>--country</em> or <em>--all</em>"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.BuildSelectionError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: empty selection", fn),
	}
}

func InterruptedError() error {
	msg := "Run interrupted, partial results were saved"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.BuildInterruptedError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: run interrupted", fn),
	}
}

func AllMakesFailedError(failed int) error {
	msg := "All <em>%d</em> selected manufacturers failed"
	vars := []any{failed}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.BuildAllMakesFailedError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: %d manufacturers failed", fn, failed),
	}
}
