package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)

// TopicCacheStore is the in-process pub/sub topic that carries executed-turn
// replies to the semantic cache writer.
const TopicCacheStore = "dialogue.cache.store"

// Intent identifiers. These are also the keys of the tool registry.
const (
	IntentCreditCard   = "credit_card"
	IntentLoan         = "loan"
	IntentSavingsFD    = "savings_fd"
	IntentPolicyFAQ    = "policy_faq"
	IntentForexTravel  = "forex_travel"
	IntentFraudDispute = "fraud_dispute"
)

// Canned replies. User-visible failure text never carries internal detail.
const (
	ReplyUnknownIntent = "I'm not sure I understand. Could you please rephrase? " +
		"I can help with loans, credit cards, FD investments, forex, policies, and fraud reports."
	ReplyCapabilityDown = "Sorry, I'm having trouble processing your request right now. Please try again in a moment."
	ReplyNoHandler      = "I found your intent but couldn't process it. Please contact support."
	ReplyToolFailed     = "I couldn't complete that just yet. Could you check the details you provided and try again?"
	ReplyTaskAborted    = "I wasn't able to complete this task. Let's start over - what would you like help with?"
	ReplyFeedbackThanks = "Great! I've cleared our conversation. Feel free to start a new request anytime."
	ReplyFeedbackKept   = "Thanks for letting me know. Let's keep refining - what should I adjust?"
	FeedbackQuestion    = "Was this helpful? (yes/no)"
)

// SlotQuestions maps a slot name to the question the assistant asks for it.
var SlotQuestions = map[string]string{
	"loan_type":      "What type of loan do you need? (personal/home/car/education)",
	"amount":         "What amount are you planning to invest/need?",
	"tenure":         "For how long? (in months)",
	"interest_rate":  "What interest rate were you quoted? (if you know)",
	"income":         "What is your annual income?",
	"card_type":      "What type of benefits are you interested in? (travel/cashback/premium)",
	"currency":       "Which currency do you need? (USD/EUR/GBP/etc.)",
	"transaction_id": "What is the transaction ID? (or say 'immediate' to block card now)",
	"description":    "Please describe the issue in detail.",
}

// IntentSeed describes one routable banking intent: its ordered required
// slots, the reference phrases embedded at startup, and the per-intent
// reject threshold on cosine distance.
type IntentSeed struct {
	Name            string
	DisplayName     string
	RequiredSlots   []string
	References      []string
	RejectThreshold float64
	Priority        int
}

// IntentSeeds is the routing catalog. Priority is the fixed tie-break order
// when two intents land on the exact same distance.
var IntentSeeds = []IntentSeed{
	{
		Name:            IntentLoan,
		DisplayName:     "Loans",
		RequiredSlots:   []string{"amount", "tenure", "interest_rate"},
		RejectThreshold: 0.4,
		Priority:        1,
		References: []string{
			"I need a personal loan",
			"How can I apply for a home loan?",
			"What's the interest rate on education loans?",
			"Tell me about car loan EMI",
			"I want to check loan eligibility",
			"How much loan can I get?",
		},
	},
	{
		Name:            IntentCreditCard,
		DisplayName:     "Credit Cards",
		RequiredSlots:   []string{"income", "card_type"},
		RejectThreshold: 0.4,
		Priority:        2,
		References: []string{
			"I want to apply for a credit card",
			"What credit cards do you offer?",
			"Tell me about your credit card benefits",
			"Which card is best for travel rewards?",
			"How do I get a new credit card?",
			"What's the credit limit on your cards?",
		},
	},
	{
		Name:            IntentSavingsFD,
		DisplayName:     "Savings & Fixed Deposits",
		RequiredSlots:   []string{"amount", "tenure"},
		RejectThreshold: 0.4,
		Priority:        3,
		References: []string{
			"What are the FD interest rates?",
			"I want to open a fixed deposit",
			"Tell me about savings account benefits",
			"How to create an FD ladder?",
			"What's the best investment option?",
			"Recurring deposit vs fixed deposit",
		},
	},
	{
		Name:            IntentForexTravel,
		DisplayName:     "Forex & Travel",
		RequiredSlots:   []string{"currency", "amount"},
		RejectThreshold: 0.4,
		Priority:        4,
		References: []string{
			"I need foreign exchange for travel",
			"What's the USD to INR rate today?",
			"How to get forex card for abroad?",
			"Travel insurance options",
			"Best forex rates for Europe trip",
			"Currency exchange services",
		},
	},
	{
		Name:            IntentFraudDispute,
		DisplayName:     "Fraud & Disputes",
		RequiredSlots:   []string{"transaction_id", "description"},
		RejectThreshold: 0.35,
		Priority:        5,
		References: []string{
			"I see an unauthorized transaction",
			"My card was stolen",
			"Report a fraudulent charge",
			"Dispute a transaction",
			"Someone used my card without permission",
			"Block my credit card immediately",
		},
	},
	{
		Name:            IntentPolicyFAQ,
		DisplayName:     "Policies & FAQ",
		RequiredSlots:   []string{},
		RejectThreshold: 0.45,
		Priority:        6,
		References: []string{
			"What are your branch timings?",
			"How do I reset my password?",
			"What documents do I need for KYC?",
			"Tell me about your privacy policy",
			"How to close my account?",
			"What are the service charges?",
		},
	},
}
