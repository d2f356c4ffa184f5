package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// QueryInt 解析查询参数，缺省或非法时返回 def，并限制在 [min, max]
func QueryInt(c *gin.Context, key string, def, min, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		v = def
	}
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v
}

// Pagination 读取 page/limit
func Pagination(c *gin.Context) (page, limit int) {
	page = QueryInt(c, "page", 1, 1, 1<<20)
	limit = QueryInt(c, "limit", 20, 1, 100)
	return page, limit
}
