package errors

import (
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/multierr"
)

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	Path     string   `json:"path,omitempty"`
	Combined []string `json:"combined,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	if errs := multierr.Errors(err); len(errs) > 1 {
		for _, e := range errs {
			d.Combined = append(d.Combined, e.Error())
		}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		d.Path = pathErr.Path
	}

	return d
}
