package query

import "regexp"

// The tables below drive entity extraction and intent classification.
// They are declarative and language-tagged so adding a language means
// adding rows, not control logic.

// keywordForm is one surface form of a document-type keyword.
type keywordForm struct {
	Lang   string // "en" or "he"
	Form   string
	Plural bool
}

// documentTypeEntry maps a normalized document type to its surface forms.
type documentTypeEntry struct {
	Type  string
	Forms []keywordForm
}

// documentTypeTable lists known document types in match priority order.
// The first matching form wins and at most one entity is produced per type.
var documentTypeTable = []documentTypeEntry{
	{Type: "receipt", Forms: []keywordForm{
		{Lang: "en", Form: "receipt"},
		{Lang: "en", Form: "receipts", Plural: true},
		{Lang: "he", Form: "קבלה"},
		{Lang: "he", Form: "קבלות", Plural: true},
	}},
	{Type: "invoice", Forms: []keywordForm{
		{Lang: "en", Form: "invoice"},
		{Lang: "en", Form: "invoices", Plural: true},
		{Lang: "en", Form: "bill"},
		{Lang: "en", Form: "bills", Plural: true},
		{Lang: "he", Form: "חשבונית"},
		{Lang: "he", Form: "חשבוניות", Plural: true},
	}},
	{Type: "id", Forms: []keywordForm{
		{Lang: "en", Form: "id card"},
		{Lang: "en", Form: "passport"},
		{Lang: "en", Form: "passports", Plural: true},
		{Lang: "en", Form: "license"},
		{Lang: "en", Form: "licenses", Plural: true},
		{Lang: "he", Form: "תעודת זהות"},
		{Lang: "he", Form: "דרכון"},
	}},
	{Type: "letter", Forms: []keywordForm{
		{Lang: "en", Form: "letter"},
		{Lang: "en", Form: "letters", Plural: true},
		{Lang: "he", Form: "מכתב"},
		{Lang: "he", Form: "מכתבים", Plural: true},
	}},
	{Type: "contract", Forms: []keywordForm{
		{Lang: "en", Form: "contract"},
		{Lang: "en", Form: "contracts", Plural: true},
		{Lang: "en", Form: "agreement"},
		{Lang: "en", Form: "agreements", Plural: true},
		{Lang: "he", Form: "חוזה"},
		{Lang: "he", Form: "חוזים", Plural: true},
	}},
	{Type: "medical", Forms: []keywordForm{
		{Lang: "en", Form: "medical"},
		{Lang: "en", Form: "prescription"},
		{Lang: "en", Form: "prescriptions", Plural: true},
		{Lang: "he", Form: "מרשם"},
		{Lang: "he", Form: "מרשמים", Plural: true},
	}},
	{Type: "insurance", Forms: []keywordForm{
		{Lang: "en", Form: "insurance"},
		{Lang: "en", Form: "policy"},
		{Lang: "en", Form: "policies", Plural: true},
		{Lang: "he", Form: "ביטוח"},
	}},
	{Type: "tax", Forms: []keywordForm{
		{Lang: "en", Form: "tax"},
		{Lang: "en", Form: "taxes", Plural: true},
		{Lang: "he", Form: "מס"},
	}},
	{Type: "bank_statement", Forms: []keywordForm{
		{Lang: "en", Form: "bank statement"},
		{Lang: "en", Form: "bank statements", Plural: true},
		{Lang: "en", Form: "statement"},
		{Lang: "en", Form: "statements", Plural: true},
		{Lang: "he", Form: "דף חשבון"},
	}},
	{Type: "warranty", Forms: []keywordForm{
		{Lang: "en", Form: "warranty"},
		{Lang: "en", Form: "warranties", Plural: true},
		{Lang: "he", Form: "אחריות"},
	}},
}

// NormalizeDocumentType maps a surface form (singular or plural, any
// supported language) to its normalized type. Returns "" when unknown.
func NormalizeDocumentType(form string) string {
	for _, entry := range documentTypeTable {
		for _, f := range entry.Forms {
			if f.Form == form {
				return entry.Type
			}
		}
	}
	return ""
}

// documentTypeTerms is the set of every surface form, used to exclude
// type keywords from vendor candidates.
var documentTypeTerms = func() map[string]bool {
	terms := make(map[string]bool)
	for _, entry := range documentTypeTable {
		for _, f := range entry.Forms {
			terms[f.Form] = true
		}
	}
	return terms
}()

// langPattern is a language-tagged regular expression.
type langPattern struct {
	Lang    string
	Pattern *regexp.Regexp
}

// intentPatternTable maps each intent to its trigger patterns.
var intentPatternTable = map[Intent][]langPattern{
	IntentSearch: {
		{Lang: "en", Pattern: regexp.MustCompile(`(?i)\b(find|search|show|display|look for|get|list)\b`)},
		{Lang: "he", Pattern: regexp.MustCompile(`(מצא|חפש|הצג|תראה)`)},
	},
	IntentFilter: {
		{Lang: "en", Pattern: regexp.MustCompile(`(?i)\b(from|since|until|before|after|only|between|during|in)\b`)},
		{Lang: "he", Pattern: regexp.MustCompile(`(רק|לפני|אחרי|בין)`)},
	},
	IntentCount: {
		{Lang: "en", Pattern: regexp.MustCompile(`(?i)\b(how many|count|number of)\b`)},
		{Lang: "he", Pattern: regexp.MustCompile(`(כמה|מספר ה)`)},
	},
	IntentCompare: {
		{Lang: "en", Pattern: regexp.MustCompile(`(?i)\b(more than|less than|over|under|above|below|greater than|bigger than|smaller than|cheaper than|expensive than)\b`)},
		{Lang: "he", Pattern: regexp.MustCompile(`(מעל|מתחת|יותר מ|פחות מ)`)},
	},
	IntentAggregate: {
		{Lang: "en", Pattern: regexp.MustCompile(`(?i)\b(total|sum|average|altogether|combined|overall)\b`)},
		{Lang: "he", Pattern: regexp.MustCompile(`(סך הכל|סכום|ממוצע)`)},
	},
	IntentSort: {
		{Lang: "en", Pattern: regexp.MustCompile(`(?i)\b(sort(ed)?( by)?|order(ed)? by|newest|oldest|latest|earliest|cheapest|most expensive)\b`)},
		{Lang: "he", Pattern: regexp.MustCompile(`(ממוין|מיין|לפי סדר)`)},
	},
	IntentLimit: {
		{Lang: "en", Pattern: regexp.MustCompile(`(?i)\b(top|first|last)\s+\d+\b`)},
		{Lang: "he", Pattern: regexp.MustCompile(`(\d+\s+(ה?ראשונים|ה?אחרונים))`)},
	},
}

// intentKeywordTable lists literal keywords whose presence raises the
// classification confidence for an intent.
var intentKeywordTable = map[Intent][]string{
	IntentSearch:    {"find", "search", "show", "מצא", "חפש"},
	IntentFilter:    {"from", "between", "only", "רק"},
	IntentCount:     {"how many", "count", "כמה"},
	IntentCompare:   {"over", "under", "than", "מעל", "מתחת"},
	IntentAggregate: {"total", "sum", "average", "סכום"},
	IntentSort:      {"sort", "order by", "מיין"},
	IntentLimit:     {"top", "first", "last"},
}

// intentRelevantEntities declares which entity types support each intent
// when computing classification confidence.
var intentRelevantEntities = map[Intent][]EntityType{
	IntentSearch:    {EntityKeyword, EntityVendor, EntityDocumentType},
	IntentFilter:    {EntityVendor, EntityDocumentType, EntityAmount},
	IntentCount:     {EntityCount, EntityDocumentType},
	IntentCompare:   {EntityAmount},
	IntentAggregate: {EntityAmount, EntityDocumentType},
	IntentSort:      {EntityDocumentType},
	IntentLimit:     {EntityCount},
}

// intentPriority resolves a single primary intent; earlier wins.
var intentPriority = []Intent{
	IntentCount,
	IntentAggregate,
	IntentCompare,
	IntentLimit,
	IntentSort,
	IntentFilter,
	IntentSearch,
}

// currencySymbols maps currency signs to ISO codes.
var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"₪": "ILS",
}

// currencyNames maps spelled-out or ISO currency tokens to ISO codes.
var currencyNames = map[string]string{
	"usd": "USD", "dollar": "USD", "dollars": "USD",
	"eur": "EUR", "euro": "EUR", "euros": "EUR",
	"gbp": "GBP", "pound": "GBP", "pounds": "GBP",
	"ils": "ILS", "nis": "ILS", "shekel": "ILS", "shekels": "ILS",
	"שקל": "ILS", "שקלים": "ILS", `ש"ח`: "ILS",
}
