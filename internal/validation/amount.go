// Package validation содержит функции валидации входных данных.
package validation

import "regexp"

// amountPattern допускает только целую часть и не более двух знаков после точки.
var amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)

// IsValidAmount проверяет, что строка является неотрицательной суммой в основных единицах
// валюты без разделителей разрядов и с точностью не более двух знаков после точки.
func IsValidAmount(amount string) bool {
	return amountPattern.MatchString(amount)
}
