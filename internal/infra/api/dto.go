package api

import (
	"encoding/json"
	"time"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/usecase"
)

type translateRequest struct {
	SourceLang   string          `json:"source_lang"`
	TargetLang   string          `json:"target_lang"`
	FunctionName string          `json:"function_name"`
	Code         string          `json:"code"`
	ParamCount   *int            `json:"param_count,omitempty"`
	Inputs       json.RawMessage `json:"inputs,omitempty"`
}

func (r translateRequest) input() usecase.TranslateInput {
	return usecase.TranslateInput{
		SourceLang:   r.SourceLang,
		TargetLang:   r.TargetLang,
		FunctionName: r.FunctionName,
		Code:         r.Code,
		ParamCount:   r.ParamCount,
		Inputs:       r.Inputs,
	}
}

type translateResponse struct {
	TranslatedCode string `json:"translated_code"`
	JobID          string `json:"job_id"`
}

type verifyResponse struct {
	TranslatedCode string        `json:"translated_code"`
	JobID          string        `json:"job_id"`
	Report         *model.Report `json:"report"`
}

type jobItem struct {
	JobID          string        `json:"job_id"`
	SourceLang     string        `json:"source_lang"`
	TargetLang     string        `json:"target_lang"`
	FunctionName   string        `json:"function_name"`
	SourceCode     string        `json:"source_code"`
	TranslatedCode string        `json:"translated_code"`
	Report         *model.Report `json:"report,omitempty"`
	Verified       bool          `json:"verified"`
	Timestamp      time.Time     `json:"timestamp"`
	PassRate       float64       `json:"pass_rate"`
}

func itemOf(j *model.Job) jobItem {
	return jobItem{
		JobID:          j.ID,
		SourceLang:     string(j.SourceLang),
		TargetLang:     string(j.TargetLang),
		FunctionName:   j.FunctionName,
		SourceCode:     j.SourceCode,
		TranslatedCode: j.TranslatedCode,
		Report:         j.Report,
		Verified:       j.Verified,
		Timestamp:      j.CreatedAt,
		PassRate:       j.PassRate(),
	}
}

type historyResponse struct {
	Items []jobItem `json:"items"`
}

type errorBody struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind"`
}
