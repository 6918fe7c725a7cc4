package common_errors

import (
	"golang.org/x/xerrors"
)

var (
	ErrEngineClosed    = xerrors.New("engine is torn down")
	ErrNilGenerator    = xerrors.New("generator cannot be nil")
	ErrNilRowReader    = xerrors.New("row reader cannot be nil")
	ErrNilSink         = xerrors.New("delivery sink cannot be nil")
	ErrEmptyPrimaryKey = xerrors.New("primary key tuple cannot be empty")
	ErrTableNotFound   = xerrors.New("table not found")
)

func IsEngineClosedError(err error) bool {
	return err == ErrEngineClosed
}

func IsTableNotFoundError(err error) bool {
	return err == ErrTableNotFound
}
