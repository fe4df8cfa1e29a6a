package sync

import (
	"sort"

	"github.com/merchkit/merchsync/internal/domain/model"
)

// ShopGroup is one shop's slice of a dispatch batch, processed oldest first.
type ShopGroup struct {
	Shop  string
	Items []model.WorkItem
}

// GroupByShop partitions a batch of pending items into per-shop queues.
// Within each shop the input order (start_date, shop from the store query)
// is preserved; groups are returned in shop name order so rounds are
// deterministic.
func GroupByShop(items []model.WorkItem) []ShopGroup {
	byShop := make(map[string][]model.WorkItem)
	for _, it := range items {
		byShop[it.Shop] = append(byShop[it.Shop], it)
	}

	shops := make([]string, 0, len(byShop))
	for shop := range byShop {
		shops = append(shops, shop)
	}
	sort.Strings(shops)

	groups := make([]ShopGroup, 0, len(shops))
	for _, shop := range shops {
		groups = append(groups, ShopGroup{Shop: shop, Items: byShop[shop]})
	}
	return groups
}

// RoundLimit decides how many items may run concurrently in one round.
// The limit is taken from the dominant object type across the heads of all
// shop queues; ties break toward the more restrictive limit so a round
// never over-parallelizes a sequential type.
func RoundLimit(groups []ShopGroup) int {
	counts := make(map[model.ObjectType]int)
	for _, g := range groups {
		if len(g.Items) > 0 {
			counts[g.Items[0].ObjectType]++
		}
	}
	if len(counts) == 0 {
		return 0
	}

	var dominant model.ObjectType
	best := -1
	for t, n := range counts {
		switch {
		case n > best:
			dominant, best = t, n
		case n == best && t.Concurrency() < dominant.Concurrency():
			dominant = t
		}
	}
	return dominant.Concurrency()
}

// NextRound takes up to limit items, one from the head of each shop queue,
// and returns the round plus the groups with those heads removed. Shops with
// exhausted queues are dropped. Items of a sequential type (concurrency 1)
// never share a round with another item of the same type.
func NextRound(groups []ShopGroup, limit int) ([]model.WorkItem, []ShopGroup) {
	if limit <= 0 {
		return nil, groups
	}

	var round []model.WorkItem
	taken := make(map[model.ObjectType]int)
	remaining := make([]ShopGroup, 0, len(groups))

	for _, g := range groups {
		if len(g.Items) == 0 {
			continue
		}
		head := g.Items[0]
		typeLimit := head.ObjectType.Concurrency()
		if len(round) < limit && taken[head.ObjectType] < typeLimit {
			round = append(round, head)
			taken[head.ObjectType]++
			g.Items = g.Items[1:]
		}
		if len(g.Items) > 0 {
			remaining = append(remaining, g)
		}
	}
	return round, remaining
}
