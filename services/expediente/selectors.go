package expediente

// Element ids of the portal's consultation page. The portal is a WebForms
// app, so ids are stable MainContent_* control names; grids append a row
// index to their button ids.
const (
	selSearchInput    = "#MainContent_txtCodigoProceso"
	selSearchButton   = "#MainContent_btnConsultar"
	selCaptchaImage   = "#MainContent_imgCaptcha"
	selFirstResultRow = "#MainContent_grdProceso_imgbConsultarGrilla_0"

	selFilesTab = "a[href='#Archivos']"
	selStepsTab = "a[href='#Actuaciones']"

	selStepsGrid       = "#MainContent_grdActuaciones"
	selStepButtons     = "input[id*='grdActuaciones_imgbConsultarGrilla']"
	selStepButtonFmt   = "#MainContent_grdActuaciones_imgbConsultarGrilla_%d"
	selStepReturn      = "#MainContent_btnRegresarActuacion"
	selStepFilesGrid   = "#MainContent_grdArchivosActuaciones"
	selStepFileButtons = "input[id*='grdArchivosActuaciones_imgDescargaArchivos']"
	selStepFileFmt     = "#MainContent_grdArchivosActuaciones_imgDescargaArchivos_%d"

	selCaseFilesGrid   = "#MainContent_grdArchivos"
	selCaseFileButtons = "input[id*='grdArchivos_imgbConsultarGrillaArchivos']"
	selCaseFileFmt     = "#MainContent_grdArchivos_imgbConsultarGrillaArchivos_%d"

	selViewerFrame = "#MainContent_IframeViewPDF"
	selViewerClose = "#MainContent_imbCerrarVistaPDF"

	selPagerRow     = "#MainContent_grdActuaciones tr.Paginacion"
	selPagerCurrent = "#MainContent_grdActuaciones tr.Paginacion span"
	selPagerLinkFmt = "#MainContent_grdActuaciones tr.Paginacion a:contains('%d')"

	// the download generator page opened in a child window
	generatorURLMarker = "Descargando.aspx"
	selGeneratorFrame  = "iframe[src*='Descargando.aspx']"
)

// Captcha rejection messages, shown in either language depending on the
// visitor's locale.
var captchaRejectionMessages = []string{
	"El valor de la Capcha no coincide",
	"Code Captcha value does not match",
}
