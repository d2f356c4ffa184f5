package util

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func contextWithQuery(rawQuery string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c
}

func TestMustParseUint(t *testing.T) {
	assert.Equal(t, uint(42), MustParseUint("42"))
	assert.Zero(t, MustParseUint("-1"))
	assert.Zero(t, MustParseUint("abc"))
}

func TestQueryIntAndPagination(t *testing.T) {
	assert.Equal(t, 5, QueryInt(contextWithQuery(""), "count", 5, 1, 20))
	assert.Equal(t, 20, QueryInt(contextWithQuery("count=99"), "count", 5, 1, 20))
	assert.Equal(t, 1, QueryInt(contextWithQuery("count=0"), "count", 5, 1, 20))
	assert.Equal(t, 5, QueryInt(contextWithQuery("count=x"), "count", 5, 1, 20))

	page, limit := Pagination(contextWithQuery("page=3&limit=500"))
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)

	page, limit = Pagination(contextWithQuery(""))
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)
}
