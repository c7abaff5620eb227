// Package repository 定义了与图数据库、Redis 和 MySQL 进行数据交换的接口和实现。
package repository

import "time"

// recordString 从图查询记录中取出字符串字段，缺失或类型不符时返回空串。
func recordString(record map[string]any, key string) string {
	if v, ok := record[key].(string); ok {
		return v
	}
	return ""
}

// recordInt64 从图查询记录中取出整数字段。
func recordInt64(record map[string]any, key string) int64 {
	switch v := record[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// recordBool 从图查询记录中取出布尔字段。
func recordBool(record map[string]any, key string) bool {
	if v, ok := record[key].(bool); ok {
		return v
	}
	return false
}

// recordStrings 从图查询记录中取出字符串列表字段。
// 驱动将 Cypher 列表反序列化为 []any，逐项断言为字符串。
func recordStrings(record map[string]any, key string) []string {
	switch v := record[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// recordTime 将以 Unix 毫秒存储的时间字段还原为 time.Time。
func recordTime(record map[string]any, key string) time.Time {
	ms := recordInt64(record, key)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
