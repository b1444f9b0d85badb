package portal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	cases := []struct {
		pageURL  string
		ref      string
		expected string
	}{
		{
			"https://portal.example/Justicia21/Ciudadanos/frmConsulta.aspx",
			"VistaPDF.aspx?id=4",
			"https://portal.example/Justicia21/Ciudadanos/VistaPDF.aspx?id=4",
		},
		{
			"https://portal.example/Justicia21/Ciudadanos/frmConsulta.aspx",
			"..\\Temp\\Descargando.aspx?id=9",
			"https://portal.example/Justicia21/Ciudadanos/../Temp/Descargando.aspx?id=9",
		},
		{
			"https://portal.example/a/b.aspx",
			"https://cdn.example/doc.pdf",
			"https://cdn.example/doc.pdf",
		},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, ResolveURL(test.pageURL, test.ref))
	}
}
