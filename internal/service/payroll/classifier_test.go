package payroll

import (
	"testing"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		title string
		want  payroll.EmploymentCategory
	}{
		{"Backend Engineer", payroll.CategoryRegular},
		{"", payroll.CategoryRegular},
		{"Software Engineer Intern", payroll.CategoryIntern},
		{"INTERNSHIP - Marketing", payroll.CategoryIntern},
		{"Thực tập sinh kế toán", payroll.CategoryIntern},
		{"Thuc Tap Sinh", payroll.CategoryIntern},
		{"Nhân viên thử việc", payroll.CategoryProbation},
		{"Probationary Analyst", payroll.CategoryProbation},
		{"Intern (thử việc)", payroll.CategoryIntern},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.title))
		})
	}
}
