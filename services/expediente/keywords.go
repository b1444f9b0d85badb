package expediente

// Keyword tables driving the classifier. They are data, not control flow:
// tuning which documents survive a notification sweep should never require
// touching Classify. All entries are pre-normalized (upper-case, no
// accents) because they are matched against textutil.Normalize output.

// protectedTitleKeywords marks documents that are substantive by name alone.
// This list is deliberately broad (it includes bare "AUTO") because a
// substantive title should win without opening the file.
var protectedTitleKeywords = []string{
	"AUTO INTERLOCUTORIO", "SENTENCIA", "AUTO NR", "AUTO NUMERO", "RESUELVE",
	"DEMANDA", "PRETENSIONES", "ORDENA", "CONTESTACION", "RECURSO", "ALEGATOS",
	"MEMORIAL", "AUDIENCIA", "ACTA", "PODER", "SOLICITUD", "INCIDENTE",
	"MANDAMIENTO", "LIQUIDACION", "AVALUO", "SECUESTRO", "REMATE", "COSTAS",
	"INVENTARIO", "DICTAMEN", "PERITAJE", "AUTO", "FALLO",
}

// notificationKeywords indicate a purely procedural communication.
var notificationKeywords = []string{
	"NOTIFICACION", "ENVIO", "CITATORIO", "AVISO", "ESTADO",
	"CERTIFICADO", "PRUEBA DE ENTREGA", "FORMATO DE CITACION",
	"COMUNICACION", "OFICIO", "COMUNICADO", "CONSTANCIA", "ACUSE",
	"GUIA", "REPORTE DE CORREO", "TELEGRAMA", "HACE SABER",
}

// formatSignatures are boilerplate phrases of the portal's notification
// templates. When a title already looks like a notification, any of these
// in the first page confirms the verdict immediately.
var formatSignatures = []string{
	"DIRECCION DE NOTIFICACION", "CODIGO DE BARRAS", "GUIA NO", "ACUSE DE RECIBO",
	"AVISO DE NOTIFICACION", "HACE SABER", "POR MEDIO DEL PRESENTE",
	"NOTIFICACION POR ESTADO", "NOTIFICACION PERSONAL", "SECRETARIA",
	"RAMA JUDICIAL DEL PODER PUBLICO", "DE MANERA ELECTRONICA", "SISTEMA DE GESTION",
}

// protectedContentKeywords is the stricter protection list applied to page
// content. Generic words like bare "AUTO" are excluded here: notification
// bodies quote the autos they serve, and quoting one must not protect the
// notice itself.
var protectedContentKeywords = []string{
	"AUTO INTERLOCUTORIO", "SENTENCIA", "RESUELVE", "DEMANDA", "PRETENSIONES",
	"ORDENA", "CONTESTACION", "RECURSO", "ALEGATOS", "MEMORIAL", "AUDIENCIA",
	"ACTA", "PODER", "SOLICITUD", "INCIDENTE", "MANDAMIENTO", "LIQUIDACION",
	"AVALUO", "SECUESTRO", "REMATE", "COSTAS", "INVENTARIO", "DICTAMEN",
	"PERITAJE", "FALLO",
}

// admission-detection tokens: the procedural step that admits the claim is
// named "Auto admite", "Auto admisorio", "Auto de admisión" and variants.
// "ADMIS" covers the stemmed forms.
var admissionStepTokens = []string{"ADMITE", "ADMIS"}
