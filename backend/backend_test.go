package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilderDoesNotAlias(t *testing.T) {
	base := All().Eq("is_published", true)
	a := base.OrderBy("event_date", false)
	b := base.Where("event_date", Gte, "2024-01-01")

	assert.Len(t, base.Filters, 1)
	assert.Len(t, a.Filters, 1)
	assert.Len(t, b.Filters, 2)
	assert.Empty(t, base.Orders)
	assert.Equal(t, []Order{{Column: "event_date"}}, a.Orders)
}

func TestOpSQL(t *testing.T) {
	for op, want := range map[Op]string{Eq: "=", Neq: "<>", Gt: ">", Gte: ">=", Lt: "<", Lte: "<="} {
		got, err := op.SQL()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := Op("like").SQL()
	assert.Error(t, err)
}

func TestMessage(t *testing.T) {
	wrapped := fmt.Errorf("save blog: %w", &Error{Op: "insert", Message: "duplicate key"})
	assert.Equal(t, "duplicate key", Message(wrapped, "Failed"))
	assert.Equal(t, "Failed", Message(errors.New("boom"), "Failed"))
	assert.Equal(t, "insert: duplicate key", wrapped.(interface{ Unwrap() error }).Unwrap().Error())
}

func TestAccessToken(t *testing.T) {
	_, ok := AccessToken(context.Background())
	assert.False(t, ok)

	ctx := WithAccessToken(context.Background(), "tok")
	token, ok := AccessToken(ctx)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)

	_, ok = AccessToken(WithAccessToken(context.Background(), ""))
	assert.False(t, ok)
}
