package gateway

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewTradeNo returns a merchant trade number made of the UTC timestamp and a
// random suffix. It is unlikely, not guaranteed, to be unique.
func NewTradeNo(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.UTC().Format("20060102150405") + suffix
}
