// Package parser extracts quantities and food descriptions from free
// text typed into the dialogue.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// quantityRe matches a positive number with an optional unit word,
// either attached ("200g") or separated ("2 cups").
var quantityRe = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*([\p{L}]+)?$`)

// numberTokenRe matches a number token inside free text, with an
// optionally attached unit ("200g").
var numberTokenRe = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)([\p{L}]+)?$`)

// canonicalUnits maps accepted unit spellings to their stored form.
var canonicalUnits = map[string]string{
	"g": "г", "gr": "г", "г": "г", "гр": "г", "грамм": "г", "граммов": "г",
	"kg": "кг", "кг": "кг",
	"ml": "мл", "мл": "мл",
	"l": "л", "л": "л", "литр": "л",
	"шт": "шт", "pcs": "шт", "pc": "шт",
	"cup": "стакан", "cups": "стакан", "стакан": "стакан", "стакана": "стакан",
	"порция": "порция", "порции": "порция", "serving": "порция", "servings": "порция",
	"ложка": "ложка", "ложки": "ложка", "tbsp": "ложка", "tsp": "ложка",
}

// ParseQuantity parses input collected in the quantity step: a positive
// number with an optional unit. "200", "1.5", "1,5", "200г" and
// "2 cups" are all accepted. The returned unit is canonicalized and
// defaults to grams when omitted.
func ParseQuantity(s string) (float64, string, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, "", fmt.Errorf("empty quantity")
	}

	m := quantityRe.FindStringSubmatch(s)
	if m == nil {
		return 0, "", fmt.Errorf("not a quantity: %q", s)
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, "", fmt.Errorf("not a number: %q", m[1])
	}
	if value <= 0 {
		return 0, "", fmt.Errorf("quantity must be positive, got %v", value)
	}

	unit := "г"
	if m[2] != "" {
		canonical, ok := canonicalUnits[m[2]]
		if !ok {
			// Unknown unit word, keep it as given
			canonical = m[2]
		}
		unit = canonical
	}

	return value, unit, nil
}

// ParseMeal extracts a quantity and description from free text such as
// "200g rice" or "рис 200 г". The quantity is optional; ok reports
// whether a description was found at all, and quantity is zero when
// only a description was present.
func ParseMeal(s string) (description string, quantity float64, unit string, ok bool) {
	tokens := strings.Fields(strings.TrimSpace(s))
	if len(tokens) == 0 {
		return "", 0, "", false
	}

	var descTokens []string
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		m := numberTokenRe.FindStringSubmatch(strings.ToLower(token))
		if m == nil || quantity > 0 {
			descTokens = append(descTokens, token)
			continue
		}

		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil || value <= 0 {
			descTokens = append(descTokens, token)
			continue
		}

		quantity = value
		if m[2] != "" {
			if canonical, known := canonicalUnits[m[2]]; known {
				unit = canonical
			} else {
				// Attached letters that are not a unit ("2x") keep the
				// token in the description
				quantity = 0
				descTokens = append(descTokens, token)
				continue
			}
		} else if i+1 < len(tokens) {
			// A known unit word may follow as its own token
			if canonical, known := canonicalUnits[strings.ToLower(tokens[i+1])]; known {
				unit = canonical
				i++
			}
		}
		if quantity > 0 && unit == "" {
			unit = "г"
		}
	}

	description = strings.TrimSpace(strings.Join(descTokens, " "))
	return description, quantity, unit, description != ""
}
