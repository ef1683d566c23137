package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesAndEscapes(t *testing.T) {
	out, err := Renderer{}.Render("closedtask.html", map[string]string{
		"EMPLOYEE_NAME":   `Ivan <script>"Petrov"</script>`,
		"DATE":            "31.08.2026",
		"VIOLATIONS_LIST": "<table><tr><td>raw</td></tr></table>",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Ivan &lt;script&gt;&quot;Petrov&quot;&lt;/script&gt;")
	assert.Contains(t, out, "31.08.2026")
	assert.Contains(t, out, "<table><tr><td>raw</td></tr></table>")
	assert.NotContains(t, out, "{EMPLOYEE_NAME}")
	assert.NotContains(t, out, "{DATE}")
	assert.NotContains(t, out, "{VIOLATIONS_LIST}")
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	out, err := Renderer{}.Render("closedtask.html", map[string]string{
		"DATE": "01.01.2026",
	})
	require.NoError(t, err)
	// Keys the caller did not supply stay as-is rather than rendering empty.
	assert.Contains(t, out, "{EMPLOYEE_NAME}")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Renderer{}.Render("nope.html", nil)
	assert.Error(t, err)
}
