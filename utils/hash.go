package utils

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"strings"
)

// FileMD5 计算文件MD5
func FileMD5(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// BytesMD5 计算字节数组MD5
func BytesMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// CacheKey 将图片 MD5 与转换参数组合成缓存键
func CacheKey(sum string, params ...string) string {
	if len(params) == 0 {
		return sum
	}
	return sum + ":" + BytesMD5([]byte(strings.Join(params, "|")))[:12]
}
