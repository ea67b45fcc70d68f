package resultcode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// One documented sample per category.
var samples = map[Category]string{
	SuccessfullyProcessed:            "000.000.000",
	SuccessfullyProcessedNeedsReview: "000.400.000",
	Pending:                          "000.200.000",
	PendingMightChangeExternally:     "800.400.500",
	Rejected3DSecureRisk:             "000.400.101",
	RejectedBank:                     "800.100.100",
	RejectedCommunications:           "900.100.100",
	RejectedSystems:                  "800.500.100",
	RejectedAsync:                    "100.397.101",
	RejectedSoftDecline:              "300.100.100",
	RejectedRiskExternalSystem:       "100.400.000",
	RejectedRiskAddress:              "800.400.100",
	RejectedRisk3DSecure:             "800.400.200",
	RejectedRiskBlacklist:            "100.100.701",
	RejectedRiskValidation:           "800.110.100",
	RejectedConfig:                   "600.200.100",
	RejectedRegistration:             "100.150.100",
	RejectedJob:                      "100.250.100",
	RejectedReference:                "700.100.100",
	RejectedFormat:                   "200.100.101",
	RejectedAddress:                  "100.800.100",
	RejectedContact:                  "100.700.100",
	RejectedAccount:                  "100.100.100",
	RejectedAmount:                   "100.550.300",
	RejectedRiskManagement:           "100.380.201",
	ChargebackRelated:                "000.100.200",
}

func TestTableIsComplete(t *testing.T) {
	assert.Len(t, rules, int(numCategories))
	for i, r := range rules {
		assert.Equal(t, Category(i), r.category, "rule %s out of order", r.name)
	}
	assert.Len(t, samples, int(numCategories))
}

func TestClassify_Samples(t *testing.T) {
	for c, code := range samples {
		t.Run(c.String(), func(t *testing.T) {
			got := Classify(code)
			assert.True(t, got.Has(c), "%s should classify as %s, got %s", code, c, got)
			assert.True(t, Matches(c, code))
		})
	}
}

func TestClassify_RejectedSubtypes(t *testing.T) {
	rejected := 0
	for c, code := range samples {
		if !c.IsRejected() {
			continue
		}
		rejected++
		assert.True(t, IsRejected(code), "%s (%s) should be rejected", code, c)
	}
	assert.Equal(t, 21, rejected)
	assert.False(t, IsRejected("000.000.000"))
}

func TestClassify_Examples(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		want       []Category
		successful bool
		pending    bool
		rejected   bool
	}{
		{
			name:       "plain success",
			code:       "000.000.123",
			want:       []Category{SuccessfullyProcessed},
			successful: true,
		},
		{
			name:    "pending only",
			code:    "000.200.000",
			want:    []Category{Pending},
			pending: true,
		},
		{
			name:       "prefix semantics ignore trailing digits",
			code:       "000.000.999999",
			want:       []Category{SuccessfullyProcessed},
			successful: true,
		},
		{
			name:     "overlapping rejected groups",
			code:     "100.380.401",
			want:     []Category{RejectedRiskExternalSystem, RejectedRisk3DSecure},
			rejected: true,
		},
		{
			name:     "blacklist also matches account group",
			code:     "100.100.701",
			want:     []Category{RejectedRiskBlacklist, RejectedAccount},
			rejected: true,
		},
		{
			name:       "needs review",
			code:       "000.400.100",
			want:       []Category{SuccessfullyProcessedNeedsReview},
			successful: true,
		},
		{
			name:    "pending might change",
			code:    "100.400.500",
			want:    []Category{PendingMightChangeExternally},
			pending: true,
		},
		{
			name: "unknown code",
			code: "555.555.555",
		},
		{
			name: "empty code",
			code: "",
		},
		{
			name: "not anchored in the middle",
			code: "x000.000.000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.code)
			assert.Equal(t, NewSet(tt.want...), got, "got %s", got)
			assert.Equal(t, tt.successful, got.IsSuccessful())
			assert.Equal(t, tt.pending, got.IsPending())
			assert.Equal(t, tt.rejected, got.IsRejected())
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for _, code := range samples {
		assert.Equal(t, Classify(code), Classify(code))
	}
}

func TestSet_Outcome(t *testing.T) {
	tests := []struct {
		code string
		want Outcome
	}{
		{"000.000.000", OutcomeSuccessful},
		{"000.400.000", OutcomeSuccessful},
		{"000.200.000", OutcomePending},
		{"800.100.100", OutcomeRejected},
		{"100.400.500", OutcomePending},
		{"100.380.401", OutcomeRejected},
		{"000.100.200", OutcomeUnknown},
		{"", OutcomeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.code).Outcome())
		})
	}
}

func TestSet_Chargeback(t *testing.T) {
	s := Classify("000.100.200")
	assert.True(t, s.IsChargeback())
	assert.False(t, s.IsSuccessful())
	assert.False(t, s.IsRejected())
}

func TestSet_JSON(t *testing.T) {
	s := NewSet(Pending, RejectedBank)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["pending","rejected_bank"]`, string(data))

	var back Set
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)

	empty, err := json.Marshal(Set(0))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(empty))

	assert.Error(t, json.Unmarshal([]byte(`["nope"]`), &back))
}

func TestOutcome_Mask(t *testing.T) {
	assert.True(t, OutcomeSuccessful.Mask().Has(SuccessfullyProcessedNeedsReview))
	assert.True(t, OutcomePending.Mask().Has(PendingMightChangeExternally))
	assert.True(t, OutcomeRejected.Mask().Has(RejectedRiskManagement))
	assert.True(t, OutcomeRejected.Mask().Has(Rejected3DSecureRisk))
	assert.False(t, OutcomeRejected.Mask().Has(ChargebackRelated))
	assert.False(t, OutcomeRejected.Mask().Has(PendingMightChangeExternally))
	assert.Equal(t, Set(0), OutcomeUnknown.Mask())
}

func TestParseHelpers(t *testing.T) {
	c, ok := ParseCategory("Rejected_Bank")
	assert.True(t, ok)
	assert.Equal(t, RejectedBank, c)

	_, ok = ParseCategory("bank")
	assert.False(t, ok)

	o, ok := ParseOutcome(" Pending ")
	assert.True(t, ok)
	assert.Equal(t, OutcomePending, o)

	_, ok = ParseOutcome("failed")
	assert.False(t, ok)

	assert.Equal(t, "unknown", Category(200).String())
	assert.Len(t, AllCategories(), 26)
}

func BenchmarkClassify(b *testing.B) {
	for b.Loop() {
		_ = Classify("100.380.401")
	}
}
