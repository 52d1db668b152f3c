// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"

	"github.com/mmeshcher/stitchmart-system/internal/model"
)

// OrderIssues проверяет обязательные поля заказа и возвращает список
// замечаний. Пустой список означает, что заказ пригоден к размещению.
func OrderIssues(garmentType string, measurements map[string]float64, fabric model.FabricDetails) []string {
	var issues []string

	if garmentType == "" {
		issues = append(issues, "garment type is required")
	}

	if len(measurements) == 0 {
		issues = append(issues, "measurements are required")
	}
	for name, value := range measurements {
		if value <= 0 {
			issues = append(issues, fmt.Sprintf("measurement %q must be positive", name))
		}
	}

	if !fabric.Provider.Valid() {
		issues = append(issues, fmt.Sprintf("unknown fabric provider %q", fabric.Provider))
	}
	if fabric.Provider == model.FabricProviderTailor && fabric.Type == "" {
		issues = append(issues, "fabric type is required when the tailor provides fabric")
	}
	if fabric.Quantity < 0 {
		issues = append(issues, "fabric quantity must not be negative")
	}
	if fabric.Budget < 0 {
		issues = append(issues, "budget must not be negative")
	}

	return issues
}
