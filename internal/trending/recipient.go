package trending

// Recipient is one of the fixed audiences the catalog is scored for.
type Recipient struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Recipients is the fixed set, in display order.
var Recipients = []Recipient{
	{Value: "boyfriend", Label: "Boyfriend"},
	{Value: "girlfriend", Label: "Girlfriend"},
	{Value: "sister", Label: "Sister"},
	{Value: "partner", Label: "Partner"},
	{Value: "friend", Label: "Friend"},
	{Value: "mom", Label: "Mom"},
	{Value: "dad", Label: "Dad"},
}

// IsRecipient reports whether value names a known recipient.
func IsRecipient(value string) bool {
	_, ok := RecipientLabel(value)
	return ok
}

// RecipientLabel returns the display label of a recipient.
func RecipientLabel(value string) (string, bool) {
	for _, r := range Recipients {
		if r.Value == value {
			return r.Label, true
		}
	}
	return "", false
}
