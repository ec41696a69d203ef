package ioprovider

import (
	"fmt"
	"runtime"

	"github.com/Aariz1001/carpulse-data/pkg/errcode"
	"github.com/gnames/gn"
)

func MissingAPIKeyError() error {
	msg := "OpenRouter API key is not set, " +
		"export the <em>OPENROUTER_API_KEY</em> environment variable"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ProviderAPIKeyError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: missing API key", fn),
	}
}
