package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	ArgsErrorCode      = 400
	RecordNotFoundCode = 404
	ServerInternalErr  = 500

	RoutingFailureCode = 1001 // 目的方不可达
	TransportFaultCode = 1002 // 连接/握手错误
)

var (
	ErrArgs           = NewCodeError(ArgsErrorCode, "ArgsError")
	ErrRecordNotFound = NewCodeError(RecordNotFoundCode, "RecordNotFound")
	ErrInternalServer = NewCodeError(ServerInternalErr, "InternalServerError")
	ErrRoutingFailure = NewCodeError(RoutingFailureCode, "RoutingFailure")
	ErrTransportFault = NewCodeError(TransportFaultCode, "TransportFault")
)

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	var d string
	if e.Detail == "" {
		d = detail
	} else {
		d = e.Detail + ", " + detail
	}
	return &CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: d,
	}
}

func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	retErr := e.WithDetail(toString(msg, kv))
	return retErr
}

func (e *CodeError) Is(err error) bool {
	var codeErr *CodeError
	if !errors.As(err, &codeErr) {
		return false
	}
	return e.Code == codeErr.Code
}

const initialCapacity = 3

func (e *CodeError) Error() string {
	v := make([]string, 0, initialCapacity)
	v = append(v, strconv.Itoa(e.Code), e.Msg)

	if e.Detail != "" {
		v = append(v, e.Detail)
	}

	return strings.Join(v, " ")
}

// New 无错误码的快捷构造，kv 成对追加到 detail
func New(msg string, kv ...any) error {
	return &CodeError{Code: ServerInternalErr, Msg: msg, Detail: toString("", kv)}
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", toString(msg, kv), err)
}

func toString(msg string, kv []any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		}
	}
	return sb.String()
}
