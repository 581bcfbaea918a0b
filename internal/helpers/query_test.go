package helpers

import (
	"net/url"
	"testing"

	"figures/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeQuery(t *testing.T) {
	values, err := url.ParseQuery("date_0=2024-01-01&date_1=2024-01-31&course_id=course-v1:edX%2BDemo%2B2024&limit=50&offset=100")
	require.NoError(t, err)

	params, err := DecodeQuery[models.DailyMetricsQueryParams](values)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", params.DateFrom)
	assert.Equal(t, "2024-01-31", params.DateTo)
	assert.Equal(t, "course-v1:edX+Demo+2024", params.CourseID)
	assert.Equal(t, 50, params.Limit)
	assert.Equal(t, 100, params.Offset)

	_, err = DecodeQuery[models.PageQueryParams](url.Values{"limit": {"ten"}})
	assert.Error(t, err)
}
