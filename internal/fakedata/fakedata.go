// Package fakedata — детерминированный генератор синтетических данных
// для выражений вида {{ person.firstName() }}.
//
// Генератор создаётся на каждый run с фиксированным seed, поэтому
// одинаковые workflow дают одинаковые значения.
package fakedata

import (
	"errors"
	"fmt"
	"sort"

	"github.com/brianvoe/gofakeit/v7"
)

// DefaultSeed — seed по умолчанию.
const DefaultSeed uint64 = 1

// ErrUnknownMethod — неизвестный метод генератора.
var ErrUnknownMethod = errors.New("unknown data generator method")

type method func(f *gofakeit.Faker) any

// methods — таблица category → method.
// Имена совпадают с привычными по faker: person.firstName, internet.email...
// Методы, зависящие от текущего времени, сюда не входят.
var methods = map[string]map[string]method{
	"person": {
		"firstName": func(f *gofakeit.Faker) any { return f.FirstName() },
		"lastName":  func(f *gofakeit.Faker) any { return f.LastName() },
		"fullName":  func(f *gofakeit.Faker) any { return f.Name() },
		"gender":    func(f *gofakeit.Faker) any { return f.Gender() },
		"jobTitle":  func(f *gofakeit.Faker) any { return f.JobTitle() },
		"prefix":    func(f *gofakeit.Faker) any { return f.NamePrefix() },
		"suffix":    func(f *gofakeit.Faker) any { return f.NameSuffix() },
	},
	"internet": {
		"email":      func(f *gofakeit.Faker) any { return f.Email() },
		"userName":   func(f *gofakeit.Faker) any { return f.Username() },
		"url":        func(f *gofakeit.Faker) any { return f.URL() },
		"domainName": func(f *gofakeit.Faker) any { return f.DomainName() },
		"domainWord": func(f *gofakeit.Faker) any { return f.DomainSuffix() },
		"ipv4":       func(f *gofakeit.Faker) any { return f.IPv4Address() },
		"ipv6":       func(f *gofakeit.Faker) any { return f.IPv6Address() },
		"userAgent":  func(f *gofakeit.Faker) any { return f.UserAgent() },
		"httpMethod": func(f *gofakeit.Faker) any { return f.HTTPMethod() },
		"httpStatus": func(f *gofakeit.Faker) any { return f.HTTPStatusCode() },
		"mac":        func(f *gofakeit.Faker) any { return f.MacAddress() },
		"emoji":      func(f *gofakeit.Faker) any { return f.Emoji() },
	},
	"location": {
		"street":      func(f *gofakeit.Faker) any { return f.StreetName() },
		"address":     func(f *gofakeit.Faker) any { return f.Street() },
		"city":        func(f *gofakeit.Faker) any { return f.City() },
		"state":       func(f *gofakeit.Faker) any { return f.State() },
		"zipCode":     func(f *gofakeit.Faker) any { return f.Zip() },
		"country":     func(f *gofakeit.Faker) any { return f.Country() },
		"countryCode": func(f *gofakeit.Faker) any { return f.CountryAbr() },
		"latitude":    func(f *gofakeit.Faker) any { return f.Latitude() },
		"longitude":   func(f *gofakeit.Faker) any { return f.Longitude() },
		"timeZone":    func(f *gofakeit.Faker) any { return f.TimeZone() },
	},
	"company": {
		"name":       func(f *gofakeit.Faker) any { return f.Company() },
		"suffix":     func(f *gofakeit.Faker) any { return f.CompanySuffix() },
		"buzzPhrase": func(f *gofakeit.Faker) any { return f.BS() },
		"buzzWord":   func(f *gofakeit.Faker) any { return f.BuzzWord() },
	},
	"finance": {
		"currencyCode":   func(f *gofakeit.Faker) any { return f.CurrencyShort() },
		"currencyName":   func(f *gofakeit.Faker) any { return f.CurrencyLong() },
		"amount":         func(f *gofakeit.Faker) any { return f.Price(1, 1000) },
		"creditCardCVV":  func(f *gofakeit.Faker) any { return f.CreditCardCvv() },
		"bitcoinAddress": func(f *gofakeit.Faker) any { return f.BitcoinAddress() },
	},
	"phone": {
		"number": func(f *gofakeit.Faker) any { return f.Phone() },
	},
	"string": {
		"uuid": func(f *gofakeit.Faker) any { return f.UUID() },
	},
	"number": {
		"int": func(f *gofakeit.Faker) any { return f.Number(0, 1000) },
	},
	"datatype": {
		"boolean": func(f *gofakeit.Faker) any { return f.Bool() },
	},
	"lorem": {
		"word":   func(f *gofakeit.Faker) any { return f.Word() },
		"phrase": func(f *gofakeit.Faker) any { return f.Phrase() },
	},
	"date": {
		"month":   func(f *gofakeit.Faker) any { return f.MonthString() },
		"weekday": func(f *gofakeit.Faker) any { return f.WeekDay() },
	},
	"color": {
		"rgb": func(f *gofakeit.Faker) any { return f.HexColor() },
	},
}

// Generator — генератор синтетических данных одного run.
// Не потокобезопасен: принадлежит одному State.
type Generator struct {
	faker *gofakeit.Faker
}

// New создаёт генератор с заданным seed.
// Seed 0 заменяется на DefaultSeed, потому что gofakeit трактует 0 как
// случайный seed.
func New(seed uint64) *Generator {
	if seed == 0 {
		seed = DefaultSeed
	}
	return &Generator{faker: gofakeit.New(seed)}
}

// Call вызывает метод генератора.
func (g *Generator) Call(category, name string) (any, error) {
	m, ok := methods[category][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s()", ErrUnknownMethod, category, name)
	}
	return m(g.faker), nil
}

// Methods возвращает список доступных вызовов ("person.firstName").
func Methods() []string {
	var out []string
	for category, ms := range methods {
		for name := range ms {
			out = append(out, category+"."+name)
		}
	}
	sort.Strings(out)
	return out
}
