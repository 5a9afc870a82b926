package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// InvoiceNumber builds an e-archive style number: GIB + 4-digit year +
// 6 random digits. Uniqueness is only probabilistic; callers that need it
// must check for collisions.
func InvoiceNumber(t time.Time) string {
	return fmt.Sprintf("GIB%d%d", t.Year(), 100000+mrand.Intn(900000))
}
