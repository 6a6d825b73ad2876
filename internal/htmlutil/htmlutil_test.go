package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenText(t *testing.T) {
	markup := `<html><head><style>.x{}</style><script>var a = 1;</script></head>
<body>
  <div>DEL Danjuma <span>[Valencia]</span> 5.939.063</div>
  <div>MED   Pedri [FC Barcelona]
     102.165.770</div>
  <p></p>
</body></html>`

	got := FlattenText(markup)
	lines := strings.Split(got, "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, "DEL Danjuma [Valencia] 5.939.063", lines[0])
	assert.Equal(t, "MED Pedri [FC Barcelona]", lines[1])
	assert.Equal(t, "102.165.770", lines[2])
	assert.NotContains(t, got, "var a")
}
