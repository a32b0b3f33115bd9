package utils

import (
	"strconv"
	"time"
)

// GenerateID 生成基于时间戳的ID
func GenerateID() int64 {
	return time.Now().UnixNano()
}

// GenerateName 生成带前缀的文件名主干
func GenerateName(prefix string) string {
	return prefix + "_" + strconv.FormatInt(GenerateID(), 36)
}
