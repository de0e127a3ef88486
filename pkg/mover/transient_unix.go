//go:build unix

package mover

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isTransient 判断错误是否为同步客户端或杀毒软件短暂占用文件造成的。
func isTransient(err error) bool {
	return errors.Is(err, unix.EBUSY) || errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ETXTBSY)
}
