package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-insights-api/internal/constants"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Offset int
	Limit  int
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Offset  int   `json:"offset"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// GetPaginationParams reads offset/limit, or page/limit when no offset is sent
func GetPaginationParams(c *gin.Context) PaginationParams {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	offset := 0
	if raw, ok := c.GetQuery("offset"); ok {
		offset, _ = strconv.Atoi(raw)
	} else if raw, ok := c.GetQuery("page"); ok {
		page, _ := strconv.Atoi(raw)
		if page < 1 {
			page = 1
		}
		offset = (page - 1) * limit
	}
	if offset < 0 {
		offset = 0
	}

	return PaginationParams{
		Offset: offset,
		Limit:  limit,
	}
}

// HasMore reports whether rows remain after the current page
func HasMore(offset, returned int, total int64) bool {
	return int64(offset+returned) < total
}
