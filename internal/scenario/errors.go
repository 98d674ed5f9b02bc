package scenario

import (
	"context"
	"errors"

	"kvbench/internal/client"
	"kvbench/internal/protocol"
)

// ErrPingFailed は計測前の疎通確認が失敗したことを表す
var ErrPingFailed = errors.New("ping failed")

// ErrorClass はエラーの分類
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	ClassOther
	ClassConnection
	ClassProtocol
	ClassTimeout
	ClassPing
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassConnection:
		return "connection"
	case ClassProtocol:
		return "protocol"
	case ClassTimeout:
		return "timeout"
	case ClassPing:
		return "ping"
	default:
		return "other"
	}
}

// ExitCode はプロセスの終了コードを返す
func (c ErrorClass) ExitCode() int {
	switch c {
	case ClassNone:
		return 0
	case ClassConnection:
		return 2
	case ClassProtocol:
		return 3
	case ClassTimeout:
		return 4
	case ClassPing:
		return 5
	default:
		return 1
	}
}

// Classify はエラーを分類する
//
// 通信レベルの原因を優先する。PING が通信エラーで失敗した場合はその分類に
// なり、サーバーが PING を拒否した場合だけ ClassPing になる。キャンセルによる
// 中断は ClassOther。
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, client.ErrConnection):
		return ClassConnection
	case errors.Is(err, protocol.ErrProtocol):
		return ClassProtocol
	case errors.Is(err, client.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassOther
	case errors.Is(err, ErrPingFailed):
		return ClassPing
	default:
		return ClassOther
	}
}
