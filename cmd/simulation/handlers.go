package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/constant"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/tools"
)

// Demo tool handlers for the six banking intents. Production deployments
// register their own handlers against the same registry.

func newBankingRegistry() *tools.Registry {
	registry := tools.NewRegistry()

	handlers := map[string]tools.Handler{
		constant.IntentLoan:         tools.HandlerFunc(calculateEMI),
		constant.IntentCreditCard:   tools.HandlerFunc(recommendCard),
		constant.IntentSavingsFD:    tools.HandlerFunc(suggestFDLadder),
		constant.IntentPolicyFAQ:    tools.HandlerFunc(searchPolicy),
		constant.IntentForexTravel:  tools.HandlerFunc(forexRates),
		constant.IntentFraudDispute: tools.HandlerFunc(fraudDispute),
	}
	for name, handler := range handlers {
		if err := registry.Register(name, handler); err != nil {
			log.Fatalf("Failed to register tool %s: %v", name, err)
		}
	}
	return registry
}

func slotFloat(inv tools.Invocation, name string, fallback float64) float64 {
	if raw, ok := inv.Slots[name]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return v
		}
	}
	return fallback
}

func formatINR(amount float64) string {
	rounded := int64(math.Round(amount))
	s := strconv.FormatInt(rounded, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := "₹" + strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

func calculateEMI(_ context.Context, inv tools.Invocation) (*tools.Result, error) {
	principal := slotFloat(inv, "amount", 0)
	rate := slotFloat(inv, "interest_rate", 10.5)
	tenure := int(slotFloat(inv, "tenure", 12))
	if principal <= 0 || tenure <= 0 {
		return nil, fmt.Errorf("emi: invalid principal %v or tenure %v", principal, tenure)
	}

	monthlyRate := (rate / 12) / 100
	var emi float64
	if monthlyRate == 0 {
		emi = principal / float64(tenure)
	} else {
		factor := math.Pow(1+monthlyRate, float64(tenure))
		emi = principal * monthlyRate * factor / (factor - 1)
	}
	totalPayment := emi * float64(tenure)
	totalInterest := totalPayment - principal

	return &tools.Result{
		Summary: fmt.Sprintf("Your EMI will be %s per month for %d months.", formatINR(emi), tenure),
		Bullets: []string{
			fmt.Sprintf("Monthly EMI: %s", formatINR(emi)),
			fmt.Sprintf("Total Amount Payable: %s", formatINR(totalPayment)),
			fmt.Sprintf("Total Interest: %s", formatINR(totalInterest)),
			fmt.Sprintf("Principal: %s", formatINR(principal)),
			fmt.Sprintf("Interest Rate: %.4g%% p.a.", rate),
			fmt.Sprintf("Tenure: %d months (%d years %d months)", tenure, tenure/12, tenure%12),
		},
		Data: map[string]any{
			"emi":            math.Round(emi*100) / 100,
			"total_payment":  math.Round(totalPayment*100) / 100,
			"total_interest": math.Round(totalInterest*100) / 100,
			"principal":      principal,
			"rate":           rate,
			"tenure":         tenure,
		},
	}, nil
}

type cardInfo struct {
	Name       string
	Benefits   []string
	AnnualFee  int
	MinIncome  float64
	RewardRate int
}

var creditCards = map[string]cardInfo{
	"travel": {
		Name:       "DemoBank Travel Elite",
		Benefits:   []string{"5X rewards on travel", "Airport lounge access", "Complimentary travel insurance"},
		AnnualFee:  2999,
		MinIncome:  500000,
		RewardRate: 5,
	},
	"cashback": {
		Name:       "DemoBank Cashback Plus",
		Benefits:   []string{"5% cashback on online shopping", "2% on dining", "Fuel surcharge waiver"},
		AnnualFee:  999,
		MinIncome:  300000,
		RewardRate: 5,
	},
	"premium": {
		Name:       "DemoBank Platinum Reserve",
		Benefits:   []string{"10X rewards", "Concierge service", "Golf privileges", "Priority customer care"},
		AnnualFee:  10000,
		MinIncome:  1500000,
		RewardRate: 10,
	},
	"entry": {
		Name:       "DemoBank Silver Card",
		Benefits:   []string{"1% rewards", "EMI conversion", "Online fraud protection"},
		AnnualFee:  0,
		MinIncome:  200000,
		RewardRate: 1,
	},
}

func recommendCard(_ context.Context, inv tools.Invocation) (*tools.Result, error) {
	income := slotFloat(inv, "income", 0)
	benefitType := strings.ToLower(strings.TrimSpace(inv.Slots["card_type"]))
	if _, known := creditCards[benefitType]; !known {
		benefitType = "general"
	}

	var eligible []string
	for cardType, card := range creditCards {
		if income >= card.MinIncome {
			eligible = append(eligible, cardType)
		}
	}
	if len(eligible) == 0 {
		return &tools.Result{
			Summary: "Based on your income, we recommend building your credit profile first.",
			Bullets: []string{
				"Consider a secured credit card to start",
				"Minimum income required: ₹2,00,000 per annum",
				"You can reapply once your income increases",
			},
			Data: map[string]any{"eligible": false, "cards": []string{}},
		}, nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := creditCards[eligible[i]], creditCards[eligible[j]]
		if a.RewardRate != b.RewardRate {
			return a.RewardRate > b.RewardRate
		}
		return eligible[i] < eligible[j]
	})

	cardType := eligible[0]
	if benefitType != "general" && income >= creditCards[benefitType].MinIncome {
		cardType = benefitType
	}
	recommended := creditCards[cardType]

	bullets := []string{
		fmt.Sprintf("Recommended: %s", recommended.Name),
		fmt.Sprintf("Annual Fee: %s", formatINR(float64(recommended.AnnualFee))),
		fmt.Sprintf("Reward Rate: %dX points", recommended.RewardRate),
	}
	bullets = append(bullets, recommended.Benefits...)

	return &tools.Result{
		Summary: fmt.Sprintf("Based on your income of %s, we recommend the %s.", formatINR(income), recommended.Name),
		Bullets: bullets,
		Data: map[string]any{
			"recommended_card": cardType,
			"annual_fee":       recommended.AnnualFee,
			"all_eligible":     eligible,
		},
	}, nil
}

// FD rates by tenure in months.
var fdRates = map[int]float64{
	6:  6.5,
	12: 7.0,
	24: 7.25,
	36: 7.5,
	60: 7.75,
}

func suggestFDLadder(_ context.Context, inv tools.Invocation) (*tools.Result, error) {
	total := slotFloat(inv, "amount", 0)
	tenure := int(slotFloat(inv, "tenure", 12))
	if total <= 0 {
		return nil, fmt.Errorf("fd ladder: invalid amount %v", total)
	}

	type split struct {
		Months   int
		Fraction float64
	}
	var splits []split
	if tenure <= 12 {
		splits = []split{{6, 0.3}, {6, 0.3}, {12, 0.4}}
	} else {
		splits = []split{{12, 0.25}, {24, 0.25}, {36, 0.25}, {60, 0.25}}
	}

	var totalInterest, totalMaturity float64
	var ladder []map[string]any
	bullets := make([]string, 0, len(splits)+6)

	for i, sp := range splits {
		amount := total * sp.Fraction
		rate, ok := fdRates[sp.Months]
		if !ok {
			rate = 7.0
		}
		interest := (amount * rate * float64(sp.Months)) / (12 * 100)
		maturity := amount + interest
		totalInterest += interest
		totalMaturity += maturity
		ladder = append(ladder, map[string]any{
			"fd_number":       i + 1,
			"amount":          amount,
			"tenure":          sp.Months,
			"rate":            rate,
			"maturity_amount": math.Round(maturity*100) / 100,
		})
		bullets = append(bullets, fmt.Sprintf("FD-%d: %s @ %.2f%% for %dm, maturity %s",
			i+1, formatINR(amount), rate, sp.Months, formatINR(maturity)))
	}

	bullets = append(bullets,
		fmt.Sprintf("Total Interest Earned: %s", formatINR(totalInterest)),
		fmt.Sprintf("Total Maturity Value: %s", formatINR(totalMaturity)),
		fmt.Sprintf("Effective Return: %.2f%%", (totalInterest/total)*100),
		"Staggered maturity keeps regular liquidity",
	)

	return &tools.Result{
		Summary: fmt.Sprintf("Invest %s across %d FDs for optimal returns and liquidity.", formatINR(total), len(splits)),
		Bullets: bullets,
		Data: map[string]any{
			"total_investment": total,
			"total_interest":   math.Round(totalInterest*100) / 100,
			"total_maturity":   math.Round(totalMaturity*100) / 100,
			"ladder":           ladder,
		},
	}, nil
}

type policyEntry struct {
	Question string
	Answer   string
}

var policyKB = map[string]policyEntry{
	"branch timings": {
		Question: "What are your branch timings?",
		Answer:   "Our branches are open Monday to Friday from 10:00 AM to 4:00 PM, and Saturday from 10:00 AM to 1:00 PM. We are closed on Sundays and public holidays.",
	},
	"password reset": {
		Question: "How do I reset my password?",
		Answer:   "To reset your password: visit the login page, click 'Forgot Password', verify the OTP sent to your registered contact, and set a new password (8-16 characters with one uppercase, one number, one special character).",
	},
	"kyc documents": {
		Question: "What documents do I need for KYC?",
		Answer:   "For KYC verification, please provide identity proof (Aadhaar/PAN/Passport/Driving License), address proof (Aadhaar/Utility Bill/Passport), and a recent photograph. All copies self-attested.",
	},
	"account closure": {
		Question: "How to close my account?",
		Answer:   "Visit your home branch, submit the account closure form with your passbook and checkbook, and clear any pending dues. The balance is transferred via check or NEFT within 7-10 business days.",
	},
	"service charges": {
		Question: "What are the service charges?",
		Answer:   "Savings account: ₹200/quarter below minimum balance. ATM: 5 free transactions/month, ₹20 thereafter. NEFT free, RTGS ₹25-50 by amount, cheque book ₹2/leaf.",
	},
	"privacy policy": {
		Question: "Tell me about your privacy policy",
		Answer:   "We protect your data with bank-grade encryption and never share personal information with third parties without consent. You can request data deletion anytime. Full policy at demobank.com/privacy",
	},
}

func searchPolicy(_ context.Context, inv tools.Invocation) (*tools.Result, error) {
	queryWords := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(inv.Utterance)) {
		queryWords[strings.Trim(w, "?.!,")] = true
	}

	var bestKey string
	bestScore := 0
	keys := make([]string, 0, len(policyKB))
	for k := range policyKB {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		policy := policyKB[key]
		score := 0
		for _, w := range strings.Fields(key + " " + strings.ToLower(policy.Question)) {
			if queryWords[strings.Trim(w, "?.!,")] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestKey = key
		}
	}

	if bestKey == "" {
		return &tools.Result{
			Summary: "I couldn't find a specific policy answer. Let me connect you with customer support.",
			Bullets: []string{
				"Call: 1800-XXX-XXXX (24x7)",
				"Email: support@demobank.com",
				"Help Center: demobank.com/help",
			},
			Data: map[string]any{"matched": false},
		}, nil
	}

	match := policyKB[bestKey]
	confidence := "medium"
	if bestScore > 2 {
		confidence = "high"
	}
	return &tools.Result{
		Summary: match.Answer,
		Bullets: []string{
			fmt.Sprintf("Question: %s", match.Question),
			"Customer Care: 1800-XXX-XXXX",
			"More at demobank.com/help",
		},
		Data: map[string]any{
			"matched_question": match.Question,
			"confidence":       confidence,
		},
	}, nil
}

var forexRatesINR = map[string]float64{
	"USD": 83.25,
	"EUR": 90.50,
	"GBP": 105.75,
	"AED": 22.65,
	"SGD": 62.40,
	"AUD": 54.30,
	"CAD": 61.20,
	"CHF": 94.80,
}

func forexRates(_ context.Context, inv tools.Invocation) (*tools.Result, error) {
	currency := strings.ToUpper(strings.TrimSpace(inv.Slots["currency"]))
	amount := slotFloat(inv, "amount", 1000)

	rate, ok := forexRatesINR[currency]
	if !ok {
		codes := make([]string, 0, len(forexRatesINR))
		for c := range forexRatesINR {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		available := strings.Join(codes, ", ")
		return &tools.Result{
			Summary: fmt.Sprintf("Currency %s not available. We support: %s", currency, available),
			Bullets: []string{fmt.Sprintf("Available currencies: %s", available)},
			Data:    map[string]any{"error": "unsupported_currency"},
		}, nil
	}

	foreignAmount := amount / rate
	cardRate := rate * 1.02 // 2% markup on the forex card
	cardAmount := amount / cardRate

	return &tools.Result{
		Summary: fmt.Sprintf("For %s, you'll get approximately %.2f %s at today's rate of ₹%.2f per %s.",
			formatINR(amount), foreignAmount, currency, rate, currency),
		Bullets: []string{
			fmt.Sprintf("Today's Rate (Cash): 1 %s = ₹%.2f", currency, rate),
			fmt.Sprintf("Forex Card Rate: 1 %s = ₹%.2f", currency, cardRate),
			fmt.Sprintf("%s = %.2f %s on the card", formatINR(amount), cardAmount, currency),
			"Multi-currency forex card, cash, and travel insurance available",
			"Documents: passport, visa, travel tickets, PAN card",
		},
		Data: map[string]any{
			"currency":       currency,
			"inr_amount":     amount,
			"foreign_amount": math.Round(foreignAmount*100) / 100,
			"exchange_rate":  rate,
			"card_rate":      math.Round(cardRate*100) / 100,
			"last_updated":   time.Now().Format("2006-01-02 15:04"),
		},
	}, nil
}

var urgentKeywords = []string{"stolen", "lost", "unauthorized", "fraud", "block", "immediate"}

func fraudDispute(_ context.Context, inv tools.Invocation) (*tools.Result, error) {
	transactionId := inv.Slots["transaction_id"]
	description := inv.Slots["description"]

	h := fnv.New32a()
	h.Write([]byte(transactionId + "|" + description))
	caseId := fmt.Sprintf("CASE%06d", h.Sum32()%900000+100000)

	haystack := strings.ToLower(description + " " + transactionId)
	urgent := false
	for _, kw := range urgentKeywords {
		if strings.Contains(haystack, kw) {
			urgent = true
			break
		}
	}

	if urgent {
		return &tools.Result{
			Summary: fmt.Sprintf("URGENT: Card blocked immediately! Your case ID is %s.", caseId),
			Bullets: []string{
				fmt.Sprintf("Case ID: %s", caseId),
				"Your card has been blocked, no further transactions possible",
				"Security team notified",
				"Replacement card arrives in 5-7 days",
				"Temporary credit in 3-5 days if eligible, final resolution in 30-45 days",
				"Emergency: 1800-XXX-BLOCK (24x7)",
			},
			Data: map[string]any{
				"case_id":        caseId,
				"transaction_id": transactionId,
				"priority":       "HIGH",
				"status":         "CARD_BLOCKED",
			},
		}, nil
	}

	return &tools.Result{
		Summary: fmt.Sprintf("Dispute case registered. Your case ID is %s. Expected response time: 24-48 hours.", caseId),
		Bullets: []string{
			fmt.Sprintf("Case ID: %s", caseId),
			fmt.Sprintf("Transaction: %s", transactionId),
			"Document review: 24-48 hours",
			"Merchant verification: 5-7 days",
			"Decision and resolution: 15-30 days",
			fmt.Sprintf("Track: demobank.com/disputes/%s", caseId),
		},
		Data: map[string]any{
			"case_id":        caseId,
			"transaction_id": transactionId,
			"priority":       "NORMAL",
			"status":         "UNDER_REVIEW",
		},
	}, nil
}
