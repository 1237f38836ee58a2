package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// User is the authenticated employee profile.
type User struct {
	HourlyRate decimal.Decimal `json:"valorHora"`
	ID         string          `json:"id"`
	Name       string          `json:"nombre"`
	Email      string          `json:"email"`
	Photo      string          `json:"foto,omitempty"`
	Currency   string          `json:"moneda,omitempty"`
}

// UnmarshalJSON accepts both "id" and "_id".
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = aux.MongoID
	}
	return nil
}

// Rate returns the hourly rate, never negative.
func (u *User) Rate() decimal.Decimal {
	if u.HourlyRate.IsNegative() {
		return decimal.Zero
	}
	return u.HourlyRate
}

// CurrencyCode returns the ISO code of the profile currency.
func (u *User) CurrencyCode() string {
	return CurrencyCode(u.Currency)
}

// Currency is one selectable profile currency.
type Currency struct {
	Code   string
	Name   string
	Symbol string
}

// Label is the form stored in the profile, e.g. "EUR - Euro".
func (c Currency) Label() string {
	return c.Code + " - " + c.Name
}

// Currencies lists the currencies the backend accepts.
var Currencies = []Currency{
	{Code: "USD", Name: "Dólar estadounidense", Symbol: "$"},
	{Code: "EUR", Name: "Euro", Symbol: "€"},
	{Code: "ARS", Name: "Peso argentino", Symbol: "$"},
	{Code: "GBP", Name: "Libra esterlina", Symbol: "£"},
}

// DefaultCurrency is used when a profile has none.
var DefaultCurrency = Currencies[0]

// CurrencyCode extracts the code from a label like "EUR - Euro".
func CurrencyCode(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return DefaultCurrency.Code
	}
	code, _, _ := strings.Cut(label, " - ")
	return strings.ToUpper(strings.TrimSpace(code))
}

// CurrencySymbol returns the display symbol for a code or label.
func CurrencySymbol(codeOrLabel string) string {
	code := CurrencyCode(codeOrLabel)
	for _, c := range Currencies {
		if c.Code == code {
			return c.Symbol
		}
	}
	return code + " "
}

// FormatMoney renders an amount with the currency symbol and two decimals.
func FormatMoney(amount decimal.Decimal, currency string) string {
	return CurrencySymbol(currency) + amount.StringFixed(2)
}
