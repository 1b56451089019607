package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var identifierPattern = regexp.MustCompile(`^(PUR|SAL|RET|ADJ|TRX)-\d{8}-[0-9A-F]{8}$`)

// NewTransactionIdentifier composes PREFIX-YYYYMMDD-XXXXXXXX, where the suffix
// is the first group of a random UUID in upper case.
func NewTransactionIdentifier(t TransactionType, createdAt time.Time) string {
	random := strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0])
	return fmt.Sprintf("%s-%s-%s", t.Prefix(), createdAt.UTC().Format("20060102"), random)
}

// IsTransactionIdentifier reports whether s has the identifier shape
func IsTransactionIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}
