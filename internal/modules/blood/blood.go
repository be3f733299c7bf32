// README: Blood group enumeration and transfusion compatibility resolver.
package blood

import "bloodlink/internal/sentinel"

// Group is one of the eight ABO/Rh combinations. Modelled as a closed
// enumeration so the compatibility table below stays exhaustive.
type Group string

const (
	APositive  Group = "A+"
	ANegative  Group = "A-"
	BPositive  Group = "B+"
	BNegative  Group = "B-"
	ABPositive Group = "AB+"
	ABNegative Group = "AB-"
	OPositive  Group = "O+"
	ONegative  Group = "O-"
)

// Groups lists every valid group, in display order.
var Groups = []Group{APositive, ANegative, BPositive, BNegative, ABPositive, ABNegative, OPositive, ONegative}

// compatibleDonors maps a recipient group to the set of groups that may
// safely donate to it, per the standard transfusion matrix. O- donates to
// everyone, AB+ receives from everyone, Rh+ never donates to Rh-.
var compatibleDonors = map[Group][]Group{
	APositive:  {APositive, ANegative, OPositive, ONegative},
	ANegative:  {ANegative, ONegative},
	BPositive:  {BPositive, BNegative, OPositive, ONegative},
	BNegative:  {BNegative, ONegative},
	ABPositive: {APositive, ANegative, BPositive, BNegative, ABPositive, ABNegative, OPositive, ONegative},
	ABNegative: {ANegative, BNegative, ABNegative, ONegative},
	OPositive:  {OPositive, ONegative},
	ONegative:  {ONegative},
}

// CompatibleDonors returns the groups that may donate to the given recipient.
func CompatibleDonors(recipient Group) []Group {
	donors := compatibleDonors[recipient]
	out := make([]Group, len(donors))
	copy(out, donors)
	return out
}

// CompatibleRecipients returns the groups the given donor may donate to,
// derived by inverting the forward table.
func CompatibleRecipients(donor Group) []Group {
	var out []Group
	for _, recipient := range Groups {
		if CanDonate(donor, recipient) {
			out = append(out, recipient)
		}
	}
	return out
}

// CanDonate reports whether a donation from donor is safe for recipient.
func CanDonate(donor, recipient Group) bool {
	for _, g := range compatibleDonors[recipient] {
		if g == donor {
			return true
		}
	}
	return false
}

// Valid reports whether g is one of the eight known groups.
func (g Group) Valid() bool {
	_, ok := compatibleDonors[g]
	return ok
}

// Parse converts a wire-format group string into a Group.
func Parse(s string) (Group, error) {
	g := Group(s)
	if !g.Valid() {
		return "", sentinel.NewValidation("blood_group", "unknown blood group "+s)
	}
	return g, nil
}
