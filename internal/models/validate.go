package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"deals-portal/internal/biddingerrors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validateOnce sync.Once
	recordCheck  *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		recordCheck = validator.New(validator.WithRequiredStructEnabled())
		recordCheck.RegisterCustomTypeFunc(func(v reflect.Value) any {
			d, ok := v.Interface().(decimal.Decimal)
			if !ok {
				return nil
			}
			f, _ := d.Float64()
			return f
		}, decimal.Decimal{})
	})
	return recordCheck
}

// ValidateRecord checks a Lot, Bid or UserProfile against its field rules.
// Stores call it on every record they read or write.
func ValidateRecord(record any) error {
	err := recordValidator().Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %T: %s", biddingerrors.ErrMalformedRecord, record, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", biddingerrors.ErrMalformedRecord, err)
}
