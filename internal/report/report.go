// Package report aggregates verified test cases.
package report

import "code-translator/internal/domain/model"

// Build counts verdicts. It keeps the cases in the order given and never
// re-judges them, so building twice from the same cases yields equal reports.
func Build(cases []model.TestCase) model.Report {
	r := model.Report{Total: len(cases), Cases: make([]model.TestCase, len(cases))}
	copy(r.Cases, cases)
	for _, c := range cases {
		if c.OK {
			r.Passed++
		}
	}
	if r.Total > 0 {
		r.PassRate = float64(r.Passed) / float64(r.Total)
	}
	return r
}
