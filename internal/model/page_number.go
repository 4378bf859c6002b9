// Package model 定义了请求、响应与持久化记录的结构体。
package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultPageNumber 是缺省或无法解析时使用的页码。
const DefaultPageNumber = 1

// PageNumber 是宽松解析的页码：接受数字或数字字符串，
// 无法解析时取默认值 1，小数向零截断，小于 1 的值按 1 处理。
type PageNumber int

// UnmarshalJSON 实现 json.Unmarshaler。该方法从不返回错误，以免单个字段拖垮整个请求。
func (p *PageNumber) UnmarshalJSON(data []byte) error {
	*p = PageNumber(coerceInt(data, DefaultPageNumber, 1, math.MaxInt32))
	return nil
}

// Int 返回规范化后的页码，零值（字段缺省）同样视为 1。
func (p PageNumber) Int() int {
	if p < 1 {
		return DefaultPageNumber
	}
	return int(p)
}

// coerceInt 把 JSON 标量转换为 [min, max] 区间内的整数，解析失败返回 def。
func coerceInt(data []byte, def, min, max int) int {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return def
	}

	var n float64
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return def
		}
		i, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		n = float64(i)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return def
		}
		if b {
			n = 1
		}
	default:
		if err := json.Unmarshal(data, &n); err != nil {
			return def
		}
	}

	if math.IsNaN(n) {
		return def
	}
	n = math.Trunc(n)
	if n < float64(min) {
		return min
	}
	if n > float64(max) {
		return max
	}
	return int(n)
}
