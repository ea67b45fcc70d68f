package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/vrpay/infra/response"
	"github.com/mstgnz/vrpay/provider/resultcode"
)

// ResultCodeInfo is the classification of one result code
type ResultCodeInfo struct {
	Code       string             `json:"code"`
	Categories []string           `json:"categories"`
	Outcome    resultcode.Outcome `json:"outcome"`
	Successful bool               `json:"successful"`
	Pending    bool               `json:"pending"`
	Rejected   bool               `json:"rejected"`
	Chargeback bool               `json:"chargeback"`
}

// CategoryInfo describes a result code category
type CategoryInfo struct {
	Name     string `json:"name"`
	Pattern  string `json:"pattern"`
	Rejected bool   `json:"rejected"`
}

// ClassifyResultCode handles GET /v1/result-codes/{code}
func ClassifyResultCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		response.Error(w, http.StatusBadRequest, "Missing result code", nil)
		return
	}

	set := resultcode.Classify(code)
	categories := set.Names()
	if categories == nil {
		categories = []string{}
	}

	response.Success(w, http.StatusOK, "Result code classified", ResultCodeInfo{
		Code:       code,
		Categories: categories,
		Outcome:    set.Outcome(),
		Successful: set.IsSuccessful(),
		Pending:    set.IsPending(),
		Rejected:   set.IsRejected(),
		Chargeback: set.IsChargeback(),
	})
}

// ListResultCategories handles GET /v1/result-codes
func ListResultCategories(w http.ResponseWriter, r *http.Request) {
	all := resultcode.AllCategories()
	out := make([]CategoryInfo, 0, len(all))
	for _, c := range all {
		out = append(out, CategoryInfo{
			Name:     c.String(),
			Pattern:  c.Pattern(),
			Rejected: c.IsRejected(),
		})
	}
	response.Success(w, http.StatusOK, "Result code categories", out)
}
