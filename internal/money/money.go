// Package money конвертирует суммы между основными единицами валюты (найра)
// и целым числом минимальных единиц (кобо) без арифметики с плавающей точкой.
package money

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/mmeshcher/merchant-dashboard/internal/validation"
)

// MinorPerMajor задаёт число минимальных единиц в одной основной.
const MinorPerMajor = 100

// MaxMinorUnits задаёт верхнюю границу суммы в кобо (10 трлн найра).
// Значение меньше 2^53, поэтому деление на 100 во float64 остаётся точным.
const MaxMinorUnits int64 = 1_000_000_000_000_000

var (
	// ErrInvalidAmount возвращается, если строка не является суммой с точностью до двух знаков.
	ErrInvalidAmount = errors.New("Enter a valid amount (max 2 decimals)")
	// ErrAmountTooLarge возвращается, если сумма превышает MaxMinorUnits.
	ErrAmountTooLarge = errors.New("Amount too large")
)

// ToMinorUnits переводит введённую пользователем сумму в кобо.
// Разделители разрядов (запятые) и пробелы по краям отбрасываются.
func ToMinorUnits(input string) (int64, error) {
	normalized := strings.TrimSpace(strings.ReplaceAll(input, ",", ""))
	if !validation.IsValidAmount(normalized) {
		return 0, ErrInvalidAmount
	}

	whole, frac, _ := strings.Cut(normalized, ".")
	frac = (frac + "00")[:2]

	minor, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		// после проверки шаблона возможно только переполнение
		return 0, ErrAmountTooLarge
	}
	if minor > MaxMinorUnits {
		return 0, ErrAmountTooLarge
	}

	return minor, nil
}

// ToMinorUnitsFloat переводит числовую сумму в кобо через её каноническое десятичное представление.
func ToMinorUnitsFloat(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return ToMinorUnits(strconv.FormatFloat(v, 'f', -1, 64))
}

// ToMajorUnitsDisplay форматирует сумму в кобо для отображения: символ валюты,
// целая часть с разделителями разрядов и ровно два знака после точки.
// Для nil возвращается пустая строка.
func ToMajorUnitsDisplay(minor *int64, symbol string) string {
	if minor == nil {
		return ""
	}

	v := *minor
	sign := ""
	// math.MinInt64 нельзя взять по модулю, разбираем через uint64
	abs := uint64(v)
	if v < 0 {
		sign = "-"
		abs = uint64(-(v + 1)) + 1
	}

	whole := strconv.FormatUint(abs/MinorPerMajor, 10)
	frac := abs % MinorPerMajor

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(symbol)
	b.WriteString(groupThousands(whole))
	b.WriteByte('.')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatUint(frac, 10))

	return b.String()
}

// ToMajorUnitsNumber возвращает сумму в основных единицах для расчётов и графиков.
func ToMajorUnitsNumber(minor *int64) float64 {
	if minor == nil {
		return 0
	}
	return float64(*minor) / MinorPerMajor
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
