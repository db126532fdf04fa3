package usecase

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/domain/policy"
)

// エラーの種類。境界でHTTPステータスに1:1で対応させる
type Kind int

const (
	KindInvalidArgument Kind = iota + 1
	KindNotFound
	KindConflict
	KindUnauthenticated
	KindForbidden
	KindStorageUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindStorageUnavailable:
		return "storage_unavailable"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Message string
	// 元のエラー（DBエラーなど）。クライアントには出さない
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// 種類だけ見たいとき。usecase.Errorでなければ0
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return 0
}

func invalidArgument(msg string) error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

func invalidInput(err error) error {
	return &Error{Kind: KindInvalidArgument, Message: err.Error(), Err: err}
}

func notFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func unauthenticated() error {
	return &Error{Kind: KindUnauthenticated, Message: "unauthorized"}
}

func forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// DB/接続エラー。すでにusecase.Errorならそのまま返す
func storage(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	msg := "db error"
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		msg = "db timeout"
	}
	return &Error{Kind: KindStorageUnavailable, Message: msg, Err: err}
}

// 認可の拒否をエラーへ
func denied(d policy.Decision) error {
	switch d.Reason {
	case policy.ReasonUnauthenticated:
		return unauthenticated()
	case policy.ReasonNotOwner:
		return forbidden("not owner")
	default:
		return forbidden(string(d.Reason))
	}
}
