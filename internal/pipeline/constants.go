package pipeline

// Defaults for statement processing. Statements currently come from one
// bank and product; these become configuration if that changes.
const (
	// DefaultBankName is the issuing bank of supported statements.
	DefaultBankName = "BBVA"

	// DefaultAccountType is the account product the layout belongs to.
	DefaultAccountType = "DEBIT"

	// DefaultCurrency is the statement currency.
	DefaultCurrency = "MXN"
)
