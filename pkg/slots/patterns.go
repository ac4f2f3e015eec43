package slots

import (
	"regexp"
	"strconv"
	"strings"
)

// Deterministic fallback extraction. Recovers obvious values with regex when
// the LLM returns nothing; only ever fills slots the caller listed as pending.

var (
	lakhAmountPattern  = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(lakhs?|crores?)\b`)
	plainAmountPattern = regexp.MustCompile(`\b(\d{5,})\b`)

	tenureUnitPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(years?|yrs?|months?|mos?)\b`)
	bareNumberPattern = regexp.MustCompile(`^\s*(\d+)\s*$`)

	ratePattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:%|percent)`)

	loanTypePattern = regexp.MustCompile(`(?i)\b(personal|home|car|education)(?:\s+loan)?\b`)
	cardTypePattern = regexp.MustCompile(`(?i)\b(travel|cashback|premium|rewards?)\b`)
	currencyPattern = regexp.MustCompile(`(?i)\b(usd|eur|gbp|jpy|aud|cad|chf|sgd|aed|inr)\b`)

	transactionIdPattern = regexp.MustCompile(`(?i)\b(txn[a-z0-9_-]+)\b`)
)

// ExtractPatterns scans the utterance for the pending slots it has rules for.
func ExtractPatterns(text string, pending []string) map[string]string {
	found := make(map[string]string)

	for _, slot := range pending {
		var value string
		switch slot {
		case "amount", "income":
			value = extractAmount(text)
		case "tenure":
			value = extractTenure(text)
		case "interest_rate":
			if m := ratePattern.FindStringSubmatch(text); m != nil {
				value = m[1]
			}
		case "loan_type":
			if m := loanTypePattern.FindStringSubmatch(text); m != nil {
				value = strings.ToLower(m[1])
			}
		case "card_type":
			if m := cardTypePattern.FindStringSubmatch(text); m != nil {
				value = strings.ToLower(m[1])
			}
		case "currency":
			if m := currencyPattern.FindStringSubmatch(text); m != nil {
				value = strings.ToUpper(m[1])
			}
		case "transaction_id":
			if m := transactionIdPattern.FindStringSubmatch(text); m != nil {
				value = strings.ToUpper(m[1])
			} else if strings.Contains(strings.ToLower(text), "immediate") {
				value = "immediate"
			}
		}
		if value != "" {
			found[slot] = value
		}
	}

	return found
}

// extractAmount understands Indian lakh/crore shorthand ("10 lakhs" =
// 1000000) and otherwise takes the first 5+ digit number.
func extractAmount(text string) string {
	if m := lakhAmountPattern.FindStringSubmatch(text); m != nil {
		base, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			multiplier := 100000.0
			if strings.HasPrefix(strings.ToLower(m[2]), "crore") {
				multiplier = 10000000.0
			}
			return strconv.FormatInt(int64(base*multiplier), 10)
		}
	}
	if m := plainAmountPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// extractTenure normalizes to months. A bare number in a plausible tenure
// range is accepted as a direct answer to the tenure question.
func extractTenure(text string) string {
	if m := tenureUnitPattern.FindStringSubmatch(text); m != nil {
		num, err := strconv.Atoi(m[1])
		if err == nil {
			if strings.HasPrefix(strings.ToLower(m[2]), "y") {
				num *= 12
			}
			return strconv.Itoa(num)
		}
	}
	if m := bareNumberPattern.FindStringSubmatch(text); m != nil {
		num, err := strconv.Atoi(m[1])
		if err == nil && num >= 2 && num <= 360 {
			return strconv.Itoa(num)
		}
	}
	return ""
}
