package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidations hooks the struct-level rules into gin's validator
// engine. Call once at startup.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterStructValidation(validateCreateRequest, CreateRequestRequest{})
}

// validateCreateRequest enforces the budget band rules before the payload
// reaches the service: both bounds positive and min <= max.
func validateCreateRequest(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateRequestRequest)
	if !req.BudgetMin.IsPositive() {
		sl.ReportError(req.BudgetMin, "BudgetMin", "budgetMin", "positivemoney", "")
	}
	if !req.BudgetMax.IsPositive() {
		sl.ReportError(req.BudgetMax, "BudgetMax", "budgetMax", "positivemoney", "")
	}
	if req.BudgetMin.GreaterThan(req.BudgetMax) {
		sl.ReportError(req.BudgetMin, "BudgetMin", "budgetMin", "budgetrange", "")
	}
}
