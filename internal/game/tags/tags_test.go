package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGameTag(t *testing.T) {
	tests := []struct {
		in   string
		want GameTag
		ok   bool
	}{
		{"ZONE", TagZone, true},
		{" CONTROLLER ", TagController, true},
		{"49", TagZone, true},
		{"99999", GameTag(99999), true},
		{"NOT_A_TAG", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseGameTag(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	v, ok := ParseValue(TagZone, "HAND")
	assert.True(t, ok)
	assert.Equal(t, int(ZoneHand), v)

	v, ok = ParseValue(TagStep, "BEGIN_MULLIGAN")
	assert.True(t, ok)
	assert.Equal(t, int(StepBeginMulligan), v)

	v, ok = ParseValue(TagNextStep, "MAIN_ACTION")
	assert.True(t, ok)
	assert.Equal(t, int(StepMainAction), v)

	v, ok = ParseValue(TagClass, "MAGE")
	assert.True(t, ok)
	assert.Equal(t, int(ClassMage), v)

	v, ok = ParseValue(TagHealth, "30")
	assert.True(t, ok)
	assert.Equal(t, 30, v)

	_, ok = ParseValue(TagHealth, "LOTS")
	assert.False(t, ok, "no enum table for numeric tags")

	_, ok = ParseValue(TagZone, "NOWHERE")
	assert.False(t, ok)
}

func TestStringFallbacks(t *testing.T) {
	assert.Equal(t, "ZONE", TagZone.String())
	assert.Equal(t, "TAG_12345", GameTag(12345).String())
	assert.Equal(t, "SETASIDE", ZoneSetAside.String())
	assert.Equal(t, "ZONE_42", Zone(42).String())
	assert.Equal(t, "MINION", CardTypeMinion.String())
	assert.Equal(t, "DONE", MulliganDone.String())
	assert.Equal(t, "MAIN_ACTION", StepMainAction.String())
	assert.Equal(t, "WARRIOR", ClassWarrior.String())
	assert.Equal(t, "UNKNOWN", ClassInvalid.String())
	assert.Equal(t, "UNKNOWN", CardClass(77).String())
}
