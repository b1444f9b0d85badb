package expediente

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		title    string
		content  string
		expected Verdict
	}{
		{
			name:     "no evidence at all keeps the document",
			title:    "",
			content:  "",
			expected: VerdictKeep,
		},
		{
			name:     "sentencia protected by title regardless of content",
			title:    "Sentencia de primera instancia",
			content:  "AVISO DE NOTIFICACION CODIGO DE BARRAS",
			expected: VerdictKeep,
		},
		{
			name:     "accented title still matches protection list",
			title:    "Auto de admisión de la demanda",
			content:  "",
			expected: VerdictKeep,
		},
		{
			name:     "notification title with template signature in content",
			title:    "Aviso de Notificación",
			content:  "por medio del presente AVISO DE NOTIFICACIÓN se informa",
			expected: VerdictDiscard,
		},
		{
			name:     "notification title without content falls back to title verdict",
			title:    "Constancia de envío",
			content:  "",
			expected: VerdictDiscard,
		},
		{
			name:     "ambiguous title rescued by protected content",
			title:    "Notificación Auto Interlocutorio",
			content:  "AUTO INTERLOCUTORIO No. 123 el juzgado RESUELVE",
			expected: VerdictKeep,
		},
		{
			name:     "ambiguous title, notification content, no protection",
			title:    "Aviso Auto",
			content:  "se deja constancia del envío del citatorio",
			expected: VerdictDiscard,
		},
		{
			name:     "neutral title with notification content",
			title:    "Documento adjunto",
			content:  "GUIA NO 4823 prueba de entrega",
			expected: VerdictDiscard,
		},
		{
			name:     "neutral title with neutral content",
			title:    "Documento adjunto",
			content:  "texto cualquiera sin marcadores",
			expected: VerdictKeep,
		},
		{
			name:     "quoted auto in a notice body does not protect it",
			title:    "Notificación por estado",
			content:  "se notifica el auto de fecha 3 de mayo",
			expected: VerdictDiscard,
		},
	}

	var classifier Classifier
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, classifier.Classify(test.title, test.content))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	var classifier Classifier
	title := "Notificación Auto Interlocutorio"
	content := "contenido sin marcadores claros"

	first := classifier.Classify(title, content)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, classifier.Classify(title, content))
	}
}
