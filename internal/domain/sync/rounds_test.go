package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/merchsync/internal/domain/model"
)

func pendingItem(shop, date string, t model.ObjectType) model.WorkItem {
	d, _ := time.Parse(model.DateLayout, date)
	return model.NewWorkItem(shop, d, t)
}

func TestGroupByShop(t *testing.T) {
	items := []model.WorkItem{
		pendingItem("zeta", "2026-03-01", model.ObjectTypeOrders),
		pendingItem("alpha", "2026-03-01", model.ObjectTypeOrders),
		pendingItem("zeta", "2026-03-02", model.ObjectTypeOrders),
	}

	groups := GroupByShop(items)
	require.Len(t, groups, 2)
	assert.Equal(t, "alpha", groups[0].Shop)
	assert.Equal(t, "zeta", groups[1].Shop)
	require.Len(t, groups[1].Items, 2)
	assert.Equal(t, day("2026-03-01"), groups[1].Items[0].StartDate)
}

func TestRoundLimit(t *testing.T) {
	tests := []struct {
		name  string
		heads []model.ObjectType
		want  int
	}{
		{"all orders", []model.ObjectType{model.ObjectTypeOrders, model.ObjectTypeOrders}, 3},
		{"all skus", []model.ObjectType{model.ObjectTypeSKUs, model.ObjectTypeSKUs}, 1},
		{"refund majority", []model.ObjectType{model.ObjectTypeRefunds, model.ObjectTypeRefunds, model.ObjectTypeOrders}, 3},
		{"tie breaks restrictive", []model.ObjectType{model.ObjectTypeOrders, model.ObjectTypeSKUs}, 1},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := make([]ShopGroup, len(tt.heads))
			for i, h := range tt.heads {
				groups[i] = ShopGroup{
					Shop:  string(rune('a' + i)),
					Items: []model.WorkItem{pendingItem("s", "2026-03-01", h)},
				}
			}
			assert.Equal(t, tt.want, RoundLimit(groups))
		})
	}
}

func TestNextRound(t *testing.T) {
	t.Run("one item per shop up to limit", func(t *testing.T) {
		groups := GroupByShop([]model.WorkItem{
			pendingItem("a", "2026-03-01", model.ObjectTypeOrders),
			pendingItem("b", "2026-03-01", model.ObjectTypeOrders),
			pendingItem("c", "2026-03-01", model.ObjectTypeOrders),
			pendingItem("d", "2026-03-01", model.ObjectTypeOrders),
		})
		round, rest := NextRound(groups, 3)
		assert.Len(t, round, 3)
		require.Len(t, rest, 1)
		assert.Equal(t, "d", rest[0].Shop)
	})

	t.Run("sku heads never share a round", func(t *testing.T) {
		groups := GroupByShop([]model.WorkItem{
			pendingItem("a", "2026-03-01", model.ObjectTypeSKUs),
			pendingItem("b", "2026-03-01", model.ObjectTypeSKUs),
		})
		round, rest := NextRound(groups, 3)
		require.Len(t, round, 1)
		assert.Equal(t, model.ObjectTypeSKUs, round[0].ObjectType)
		assert.Len(t, rest, 1)

		round2, rest2 := NextRound(rest, 3)
		assert.Len(t, round2, 1)
		assert.Empty(t, rest2)
	})

	t.Run("exhausted shops are dropped", func(t *testing.T) {
		groups := GroupByShop([]model.WorkItem{
			pendingItem("a", "2026-03-01", model.ObjectTypeOrders),
			pendingItem("b", "2026-03-01", model.ObjectTypeOrders),
			pendingItem("b", "2026-03-02", model.ObjectTypeOrders),
		})
		_, rest := NextRound(groups, 3)
		require.Len(t, rest, 1)
		assert.Equal(t, "b", rest[0].Shop)
		require.Len(t, rest[0].Items, 1)
		assert.Equal(t, day("2026-03-02"), rest[0].Items[0].StartDate)
	})

	t.Run("zero limit takes nothing", func(t *testing.T) {
		groups := GroupByShop([]model.WorkItem{pendingItem("a", "2026-03-01", model.ObjectTypeOrders)})
		round, rest := NextRound(groups, 0)
		assert.Empty(t, round)
		assert.Len(t, rest, 1)
	})
}
