package flowsettings_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankframework/frankflow/flowparser"
	"github.com/frankframework/frankflow/flowsettings"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		text string
		exp  flowsettings.Value
	}{
		{text: "true", exp: flowsettings.BoolValue(true)},
		{text: "false", exp: flowsettings.BoolValue(false)},
		{text: "10", exp: flowsettings.NumberValue(10)},
		{text: "-2.5", exp: flowsettings.NumberValue(-2.5)},
		{text: "horizontal", exp: flowsettings.StringValue("horizontal")},
		{text: "", exp: flowsettings.StringValue("")},
		{text: "True", exp: flowsettings.StringValue("True")},
	}
	for _, tc := range testCases {
		v := flowsettings.Decode(tc.text)
		assert.Equal(t, tc.exp, v, tc.text)
		assert.Equal(t, tc.text, v.String())
	}
}

func TestFromConfiguration(t *testing.T) {
	t.Parallel()

	s, err := flowparser.ParseString("config.xml", `<Configuration flow:direction="vertical" flow:gridSize="25" flow:snap="true" name="c">
	<Adapter name="a" />
</Configuration>
`)
	require.NoError(t, err)

	settings := flowsettings.FromConfiguration(s.Configuration)
	assert.Equal(t, []string{"direction", "gridSize", "snap"}, settings.Names())
	assert.Equal(t, "vertical", settings.Direction())
	assert.Equal(t, "", settings.ForwardStyle())
	size, ok := settings.GridSize()
	assert.True(t, ok)
	assert.Equal(t, 25.0, size)

	b, err := json.Marshal(settings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"direction":"vertical","gridSize":25,"snap":true}`, string(b))

	var settings2 flowsettings.Settings
	require.NoError(t, json.Unmarshal(b, &settings2))
	assert.Equal(t, settings, settings2)

	assert.Empty(t, flowsettings.FromConfiguration(nil))
	assert.Equal(t, "flow:gridSize", flowsettings.Attribute("gridSize"))
}
