package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// CalculateSHA256FromBytes 从字节切片计算 SHA-256 哈希
func CalculateSHA256FromBytes(data []byte) string {
	hashBytes := sha256.Sum256(data)
	return hex.EncodeToString(hashBytes[:])
}

// CalculateSHA256 计算并返回一个文件的SHA-256哈希值，即内容指纹。
func CalculateSHA256(filePath string) (string, error) {
	return CalculateSHA256Context(context.Background(), filePath)
}

// CalculateSHA256Context 与 CalculateSHA256 相同，但在读取大文件时响应取消。
func CalculateSHA256Context(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return CalculateSHA256FromReader(ctx, file)
}

// CalculateSHA256FromReader 对任意 reader 计算指纹。
func CalculateSHA256FromReader(ctx context.Context, r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, ContextReader(ctx, r)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FilesIdentical 先比较大小，再比较指纹。
func FilesIdentical(a, b string) (bool, error) {
	infoA, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	hashA, err := CalculateSHA256(a)
	if err != nil {
		return false, err
	}
	hashB, err := CalculateSHA256(b)
	if err != nil {
		return false, err
	}
	return hashA == hashB, nil
}

// ContextReader 包装 r，在每次 Read 前检查 ctx，供长时间的复制和哈希使用。
func ContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &contextReader{ctx: ctx, r: r}
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
