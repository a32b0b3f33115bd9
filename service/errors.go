package service

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind 转换失败的原因
type ErrorKind string

const (
	KindInvalidImage ErrorKind = "invalid_image"
	KindInvalidSpec  ErrorKind = "invalid_spec"
	KindSerializeIO  ErrorKind = "serialize_io"
	KindBusy         ErrorKind = "busy"
	// KindCanceled 调用方取消或超时
	KindCanceled ErrorKind = "canceled"
)

var ErrInvalidSpec = errors.New("invalid extrusion spec")

// ConversionError 带阶段和目标信息的转换错误
type ConversionError struct {
	Kind        ErrorKind
	Target      string
	Destination string
	Err         error
}

func (e *ConversionError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: target %q (%s): %v", e.Kind, e.Target, e.Destination, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsKind 判断错误链中是否有指定类型的 ConversionError
func IsKind(err error, kind ErrorKind) bool {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf 返回错误类型，非 ConversionError 返回空
func KindOf(err error) ErrorKind {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
