// Package db holds what the SQL job stores share: the column layout of a job
// and its conversion to and from the domain model.
package db

import (
	"time"

	"code-translator/internal/domain/model"
)

// JobRow is one row of the jobs table. Outcomes inside TestCases and Report
// use the lossless storage encoding of the model package.
type JobRow struct {
	ID             string
	SourceLang     string
	TargetLang     string
	FunctionName   string
	SourceCode     string
	TranslatedCode string
	ParamCount     int
	TestCases      []byte
	Report         []byte // nil for unverified jobs
	Verified       bool
	CreatedAt      time.Time
}

// Columns in the order Args and scan targets use.
const Columns = `id, source_lang, target_lang, function_name, source_code, translated_code,
	param_count, test_cases, report, verified, created_at`

func RowOf(j *model.Job) JobRow {
	r := JobRow{
		ID:             j.ID,
		SourceLang:     string(j.SourceLang),
		TargetLang:     string(j.TargetLang),
		FunctionName:   j.FunctionName,
		SourceCode:     j.SourceCode,
		TranslatedCode: j.TranslatedCode,
		ParamCount:     j.ParamCount,
		TestCases:      model.EncodeCases(j.TestCases),
		Verified:       j.Verified,
		CreatedAt:      j.CreatedAt.UTC(),
	}
	if j.Report != nil {
		r.Report = model.EncodeReport(j.Report)
	}
	return r
}

// Args lists the row values in Columns order.
func (r JobRow) Args() []any {
	var report any
	if r.Report != nil {
		report = string(r.Report)
	}
	return []any{r.ID, r.SourceLang, r.TargetLang, r.FunctionName, r.SourceCode, r.TranslatedCode,
		r.ParamCount, string(r.TestCases), report, r.Verified, r.CreatedAt}
}

func (r JobRow) Job() (*model.Job, error) {
	cases, err := model.DecodeCases(r.TestCases)
	if err != nil {
		return nil, err
	}
	j := &model.Job{
		ID:             r.ID,
		SourceLang:     model.Language(r.SourceLang),
		TargetLang:     model.Language(r.TargetLang),
		FunctionName:   r.FunctionName,
		SourceCode:     r.SourceCode,
		TranslatedCode: r.TranslatedCode,
		ParamCount:     r.ParamCount,
		TestCases:      cases,
		Verified:       r.Verified,
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if len(r.Report) > 0 {
		if j.Report, err = model.DecodeReport(r.Report); err != nil {
			return nil, err
		}
	}
	return j, nil
}
