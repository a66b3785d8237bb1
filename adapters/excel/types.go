package excel

import (
	"rmanova/domain/tensor"
)

// Dataset is an observation array loaded from a workbook or CSV file
type Dataset struct {
	Data       *tensor.Dense // (subjects, conditions) or (subjects, conditions, slices)
	Conditions []string      // Column headers after the optional subject column
	Subjects   []string      // Subject identifiers, row order
	Slices     []string      // Sheet names stacked on the trailing axis; empty for CSV
}

// SubjectColumn is the header that marks a leading subject-id column
const SubjectColumn = "subject"
