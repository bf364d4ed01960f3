package econet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldValueBareAndNestedAreEquivalent(t *testing.T) {
	bare := map[string]interface{}{"@SETPOINT": 120.0}
	nested := map[string]interface{}{
		"@SETPOINT": map[string]interface{}{
			"value": 120.0,
			"constraints": map[string]interface{}{
				"lowerLimit": 90.0,
				"upperLimit": 140.0,
			},
		},
	}

	assert.Equal(t, 120.0, fieldValue(bare, "@SETPOINT", nil), "bare scalar should be returned as is")
	assert.Equal(t, 120.0, fieldValue(nested, "@SETPOINT", nil), "nested value should unwrap to the same scalar")
}

func TestFieldValueFallbacks(t *testing.T) {
	raw := map[string]interface{}{
		"nilField":    nil,
		"emptyNested": map[string]interface{}{"constraints": map[string]interface{}{}},
	}

	assert.Equal(t, "dflt", fieldValue(raw, "missing", "dflt"), "missing field should fall back")
	assert.Equal(t, "dflt", fieldValue(raw, "nilField", "dflt"), "nil field should fall back")
	assert.Equal(t, "dflt", fieldValue(raw, "emptyNested", "dflt"), "nested object without value should fall back")
}

func TestFieldConstraints(t *testing.T) {
	raw := map[string]interface{}{
		"@MODE": map[string]interface{}{
			"value": 1.0,
			"constraints": map[string]interface{}{
				"enumText": []interface{}{"Off", "Energy Saver"},
			},
		},
		"@SETPOINT": 120.0,
	}

	constraints := fieldConstraints(raw, "@MODE")
	assert.Equal(t, []string{"Off", "Energy Saver"}, constraintStrings(constraints, "enumText"))
	assert.Nil(t, fieldConstraints(raw, "@SETPOINT"), "bare scalar has no constraints")
	assert.Nil(t, fieldConstraints(raw, "missing"), "missing field has no constraints")
}

func TestFieldIntCoercion(t *testing.T) {
	raw := map[string]interface{}{
		"float":  125.0,
		"string": "110",
		"spaced": " 95 ",
		"bool":   true,
		"junk":   "not a number",
	}

	assert.Equal(t, 125, fieldInt(raw, "float", 0))
	assert.Equal(t, 110, fieldInt(raw, "string", 0))
	assert.Equal(t, 95, fieldInt(raw, "spaced", 0))
	assert.Equal(t, 1, fieldInt(raw, "bool", 0))
	assert.Equal(t, 7, fieldInt(raw, "junk", 7), "unparseable string should fall back")
	assert.Equal(t, 7, fieldInt(raw, "missing", 7))
}

func TestFieldBoolCoercion(t *testing.T) {
	raw := map[string]interface{}{
		"bool":        true,
		"zero":        0.0,
		"one":         1.0,
		"emptyString": "",
		"someString":  "Heat Pump",
	}

	assert.True(t, fieldBool(raw, "bool", false))
	assert.False(t, fieldBool(raw, "zero", true))
	assert.True(t, fieldBool(raw, "one", false))
	assert.False(t, fieldBool(raw, "emptyString", true), "empty string is falsy")
	assert.True(t, fieldBool(raw, "someString", false), "non-empty string is truthy")
	assert.True(t, fieldBool(raw, "missing", true))
}

func TestConstraintInt(t *testing.T) {
	constraints := map[string]interface{}{
		"lowerLimit": 85.0,
		"upperLimit": "135",
	}

	assert.Equal(t, 85, constraintInt(constraints, "lowerLimit", 90))
	assert.Equal(t, 135, constraintInt(constraints, "upperLimit", 140))
	assert.Equal(t, 90, constraintInt(constraints, "missing", 90))
	assert.Equal(t, 90, constraintInt(nil, "lowerLimit", 90), "nil constraints should fall back")
}
