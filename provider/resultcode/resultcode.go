// Package resultcode classifies VR Payment result codes.
//
// A result code is a dotted numeric string such as "000.100.110". The code
// space is split into documented groups, each described by an anchored
// regular expression. Groups overlap, so a code classifies into a Set of
// categories rather than a single tag. Codes that match no group yield an
// empty Set, which callers must treat as unknown and never as success.
package resultcode

import (
	"regexp"
	"strings"
)

// Category is one documented result code group.
type Category uint8

const (
	SuccessfullyProcessed Category = iota
	SuccessfullyProcessedNeedsReview
	Pending
	PendingMightChangeExternally
	Rejected3DSecureRisk
	RejectedBank
	RejectedCommunications
	RejectedSystems
	RejectedAsync
	RejectedSoftDecline
	RejectedRiskExternalSystem
	RejectedRiskAddress
	RejectedRisk3DSecure
	RejectedRiskBlacklist
	RejectedRiskValidation
	RejectedConfig
	RejectedRegistration
	RejectedJob
	RejectedReference
	RejectedFormat
	RejectedAddress
	RejectedContact
	RejectedAccount
	RejectedAmount
	RejectedRiskManagement
	ChargebackRelated

	numCategories
)

type rule struct {
	category Category
	name     string
	pattern  string
	re       *regexp.Regexp
}

// rules is evaluated in full for every code. It is built once at package
// init and never written afterwards.
var rules = compile([]rule{
	{category: SuccessfullyProcessed, name: "successfully_processed", pattern: `^(000\.000\.|000\.100\.1|000\.[36])`},
	{category: SuccessfullyProcessedNeedsReview, name: "successfully_processed_needs_review", pattern: `^(000\.400\.0[^3]|000\.400\.100)`},
	{category: Pending, name: "pending", pattern: `^(000\.200)`},
	{category: PendingMightChangeExternally, name: "pending_might_change_externally", pattern: `^(800\.400\.5|100\.400\.500)`},
	{category: Rejected3DSecureRisk, name: "rejected_3dsecure_risk", pattern: `^(000\.400\.[1][0-9][1-9]|000\.400\.2)`},
	{category: RejectedBank, name: "rejected_bank", pattern: `^(800\.[17]00|800\.800\.[123])`},
	{category: RejectedCommunications, name: "rejected_communications", pattern: `^(900\.[1234]00|000\.400\.030)`},
	{category: RejectedSystems, name: "rejected_systems", pattern: `^(800\.[56]|999\.|600\.1|800\.800\.[84])`},
	{category: RejectedAsync, name: "rejected_async", pattern: `^(100\.39[765])`},
	{category: RejectedSoftDecline, name: "rejected_soft_decline", pattern: `^(300\.100\.100)`},
	{category: RejectedRiskExternalSystem, name: "rejected_risk_external_system", pattern: `^(100\.400\.[0-3]|100\.38|100\.370\.100|100\.370\.11)`},
	{category: RejectedRiskAddress, name: "rejected_risk_address", pattern: `^(800\.400\.1)`},
	{category: RejectedRisk3DSecure, name: "rejected_risk_3dsecure", pattern: `^(800\.400\.2|100\.380\.4|100\.390)`},
	{category: RejectedRiskBlacklist, name: "rejected_risk_blacklist", pattern: `^(100\.100\.701|800\.[32])`},
	{category: RejectedRiskValidation, name: "rejected_risk_validation", pattern: `^(800\.1[123456]0)`},
	{category: RejectedConfig, name: "rejected_config", pattern: `^(600\.[23]|500\.[12]|800\.121)`},
	{category: RejectedRegistration, name: "rejected_registration", pattern: `^(100\.[13]50)`},
	{category: RejectedJob, name: "rejected_job", pattern: `^(100\.250|100\.360)`},
	{category: RejectedReference, name: "rejected_reference", pattern: `^(700\.[1345][05]0)`},
	{category: RejectedFormat, name: "rejected_format", pattern: `^(200\.[123]|100\.[53][07]|800\.900|100\.[69]00\.500)`},
	{category: RejectedAddress, name: "rejected_address", pattern: `^(100\.800)`},
	{category: RejectedContact, name: "rejected_contact", pattern: `^(100\.[97]00)`},
	{category: RejectedAccount, name: "rejected_account", pattern: `^(100\.100|100\.2[01])`},
	{category: RejectedAmount, name: "rejected_amount", pattern: `^(100\.55)`},
	{category: RejectedRiskManagement, name: "rejected_risk_management", pattern: `^(100\.380\.[23]|100\.380\.101)`},
	{category: ChargebackRelated, name: "chargeback_related", pattern: `^(000\.100\.2)`},
})

func compile(rs []rule) []rule {
	for i := range rs {
		rs[i].re = regexp.MustCompile(rs[i].pattern)
	}
	return rs
}

// String returns the snake_case name of the category.
func (c Category) String() string {
	if c >= numCategories {
		return "unknown"
	}
	return rules[c].name
}

// Pattern returns the regular expression for the category.
func (c Category) Pattern() string {
	if c >= numCategories {
		return ""
	}
	return rules[c].pattern
}

// IsRejected reports whether the category is one of the Rejected* groups.
func (c Category) IsRejected() bool {
	return c >= Rejected3DSecureRisk && c <= RejectedRiskManagement
}

// ParseCategory resolves a snake_case category name.
func ParseCategory(name string) (Category, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, r := range rules {
		if r.name == name {
			return r.category, true
		}
	}
	return 0, false
}

// AllCategories returns every category in table order.
func AllCategories() []Category {
	out := make([]Category, 0, numCategories)
	for _, r := range rules {
		out = append(out, r.category)
	}
	return out
}

// Classify returns every category whose pattern matches code.
func Classify(code string) Set {
	var s Set
	for _, r := range rules {
		if r.re.MatchString(code) {
			s = s.With(r.category)
		}
	}
	return s
}

// Matches reports whether code belongs to category c.
func Matches(c Category, code string) bool {
	if c >= numCategories {
		return false
	}
	return rules[c].re.MatchString(code)
}

// IsSuccessful reports whether code was processed successfully, with or without review.
func IsSuccessful(code string) bool { return Classify(code).IsSuccessful() }

// IsPending reports whether code is pending.
func IsPending(code string) bool { return Classify(code).IsPending() }

// IsRejected reports whether code falls in any rejected group.
func IsRejected(code string) bool { return Classify(code).IsRejected() }
