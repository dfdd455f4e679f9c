package custody

import (
	"fmt"
	"math/rand/v2"
	"regexp"
)

var (
	caseIDPattern  = regexp.MustCompile(`^CASE-\d{4}-[A-Z]$`)
	alertIDPattern = regexp.MustCompile(`^ALERT-\d{4}$`)
)

// IDSource supplies the randomness used for record ids. *rand.Rand satisfies it.
type IDSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// NewCaseID returns an intake id such as CASE-4821-K
func NewCaseID(src IDSource) string {
	return fmt.Sprintf("CASE-%04d-%c", 1000+src.IntN(9000), rune('A'+src.IntN(26)))
}

// NewAlertID returns a public report id such as ALERT-7310
func NewAlertID(src IDSource) string {
	return fmt.Sprintf("ALERT-%04d", 1000+src.IntN(9000))
}

// ValidRecordID reports whether id is a case or alert id
func ValidRecordID(id string) bool {
	return caseIDPattern.MatchString(id) || alertIDPattern.MatchString(id)
}
