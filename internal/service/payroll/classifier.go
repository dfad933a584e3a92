package payroll

import (
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/textnorm"
)

var (
	internKeywords    = []string{"intern", "thuc tap"}
	probationKeywords = []string{"thu viec", "probation"}
)

// Classify maps a position title to its employment category. Matching is
// case and accent insensitive; intern wins over probation.
func Classify(positionTitle string) payroll.EmploymentCategory {
	title := textnorm.Fold(positionTitle)
	switch {
	case textnorm.ContainsAny(title, internKeywords...):
		return payroll.CategoryIntern
	case textnorm.ContainsAny(title, probationKeywords...):
		return payroll.CategoryProbation
	default:
		return payroll.CategoryRegular
	}
}
