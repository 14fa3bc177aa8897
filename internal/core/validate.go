package core

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validator checks FamilyProfile and Transaction records before they are persisted.
// Build one with NewValidator and share it; it is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// ValidatorOption customizes a Validator.
type ValidatorOption func(*Validator)

// WithClock overrides the clock used for the future-date rule.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.now = now
	}
}

// NewValidator builds the record validator with the domain rules registered.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	// Report JSON names in errors
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).IsValid()
	})

	v.validate.RegisterStructValidation(func(sl validator.StructLevel) {
		f := sl.Current().Interface().(FamilyProfile)
		if f.Income < f.MonthlyExpenses {
			sl.ReportError(f.MonthlyExpenses, "monthlyExpenses", "MonthlyExpenses", "withinincome", "")
		}
	}, FamilyProfile{})

	v.validate.RegisterStructValidation(func(sl validator.StructLevel) {
		t := sl.Current().Interface().(Transaction)
		if !t.TransactionDate.IsZero() && t.TransactionDate.After(v.now()) {
			sl.ReportError(t.TransactionDate, "transactionDate", "TransactionDate", "notfuture", "")
		}
		if t.Amount > SuspiciousAmountThreshold {
			sl.ReportError(t.Amount, "amount", "Amount", "suspicious", "")
		}
	}, Transaction{})

	return v
}

// ValidateFamily checks a family profile. It returns a *ValidationError on failure.
func (v *Validator) ValidateFamily(f FamilyProfile) error {
	return v.check("family profile", f.Normalize())
}

// ValidateTransaction checks a transaction. It returns a *ValidationError on failure.
func (v *Validator) ValidateTransaction(t Transaction) error {
	return v.check("transaction", t.Normalize())
}

func (v *Validator) check(record string, s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Record: record, Msg: err.Error(), Err: err}
	}

	first := fieldErrs[0]
	return &ValidationError{
		Record: record,
		Field:  first.Field(),
		Msg:    validationMessage(first),
		Err:    err,
	}
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "gte":
		if e.Param() == "0.01" {
			return "must be a positive number"
		}
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "category":
		return "must be one of " + categoryList()
	case "withinincome":
		return "cannot exceed income"
	case "notfuture":
		return "cannot be in the future"
	case "suspicious":
		return "is unusually high"
	default:
		return "is invalid"
	}
}

func categoryList() string {
	names := make([]string, 0, 8)
	for _, c := range Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
