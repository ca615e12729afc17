package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationParams(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		want        PaginationParams
	}{
		{"defaults", 0, 0, PaginationParams{Page: 1, Limit: 20, Offset: 0}},
		{"third page", 3, 10, PaginationParams{Page: 3, Limit: 10, Offset: 20}},
		{"limit too large", 2, 500, PaginationParams{Page: 2, Limit: 20, Offset: 20}},
		{"negative page", -4, 5, PaginationParams{Page: 1, Limit: 5, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPaginationParams(tt.page, tt.limit))
		})
	}
}

func TestPaginationParams_Response(t *testing.T) {
	params := NewPaginationParams(2, 10)

	assert.True(t, params.Response(21).HasMore)
	assert.False(t, params.Response(20).HasMore)
	assert.Equal(t, int64(20), params.Response(20).Total)
}

func TestInviteCode(t *testing.T) {
	code, err := GenerateInviteCode()
	assert.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}$`, code)
	assert.Equal(t, code, NormalizeInviteCode("  "+code+"\n"))
	assert.Equal(t, "ab12-cd34-ef56", NormalizeInviteCode("AB12-CD34-EF56"))
}
