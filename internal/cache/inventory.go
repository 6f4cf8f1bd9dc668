package cache

import (
	"fmt"
	"time"
)

const (
	ItemKeyPrefix     = "item:%d"
	TrendingKeyPrefix = "trending:%s"
)

const (
	// ItemTTL bounds staleness of anonymous item detail reads.
	ItemTTL = 5 * time.Minute
	// TrendingTTL is the default snapshot lifetime; trending tolerates
	// seconds of staleness, never minutes.
	TrendingTTL = 15 * time.Second
)

func ItemKey(itemID uint) string {
	return fmt.Sprintf(ItemKeyPrefix, itemID)
}

func TrendingKey(scope string) string {
	return fmt.Sprintf(TrendingKeyPrefix, scope)
}
