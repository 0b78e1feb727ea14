package util

import (
	"strconv"
	"time"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// StartOfDay 返回给定时间当天的零点
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CeilDiv 整数向上取整除法，除数必须为正
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}
