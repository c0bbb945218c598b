package pptx

const (
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"

	typePresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	typeSlide        = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	typeSlideLayout  = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	typeSlideMaster  = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	typeTheme        = "application/vnd.openxmlformats-officedocument.theme+xml"
	typePresProps    = "application/vnd.openxmlformats-officedocument.presentationml.presProps+xml"
	typeViewProps    = "application/vnd.openxmlformats-officedocument.presentationml.viewProps+xml"
	typeTableStyles  = "application/vnd.openxmlformats-officedocument.presentationml.tableStyles+xml"

	presentationPart = "ppt/presentation.xml"
	masterPart       = "ppt/slideMasters/slideMaster1.xml"
	themePart        = "ppt/theme/theme1.xml"
	appPart          = "docProps/app.xml"
)

const namespaces = `xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"`

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// 16:9 slide size in EMU
const (
	slideWidth  = 12192000
	slideHeight = 6858000
	emuPerInch  = 914400
)

// Built-in "Medium Style 2 - Accent 1", known to PowerPoint without a definition
const defaultTableStyle = "{5C22544A-7EE6-4342-B048-85BDC9FD1C3A}"

const blankPresentation = xmlHeader + `<p:presentation ` + namespaces + ` saveSubsetFonts="1">` +
	`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>` +
	`<p:sldIdLst></p:sldIdLst>` +
	`<p:sldSz cx="12192000" cy="6858000"/><p:notesSz cx="6858000" cy="9144000"/>` +
	`<p:defaultTextStyle><a:defPPr><a:defRPr lang="en-US"/></a:defPPr></p:defaultTextStyle>` +
	`</p:presentation>`

const blankApp = xmlHeader + `<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"><Application>mcp-office</Application><PresentationFormat>Widescreen</PresentationFormat></Properties>`

const blankPresProps = xmlHeader + `<p:presentationPr ` + namespaces + `/>`

const blankViewProps = xmlHeader + `<p:viewPr ` + namespaces + `><p:normalViewPr><p:restoredLeft sz="15620"/><p:restoredTop sz="94660"/></p:normalViewPr><p:gridSpacing cx="76200" cy="76200"/></p:viewPr>`

const blankTableStyles = xmlHeader + `<a:tblStyleLst xmlns:a="` + nsA + `" def="` + defaultTableStyle + `"/>`

const groupProperties = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

const masterTitle = `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title Placeholder 1"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>` +
	`<p:spPr><a:xfrm><a:off x="838200" y="365125"/><a:ext cx="10515600" cy="1325563"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>` +
	`<p:txBody><a:bodyPr vert="horz" lIns="91440" tIns="45720" rIns="91440" bIns="45720" rtlCol="0" anchor="ctr"><a:normAutofit/></a:bodyPr><a:lstStyle/><a:p><a:r><a:rPr lang="en-US"/><a:t>Click to edit Master title style</a:t></a:r></a:p></p:txBody></p:sp>`

const masterBody = `<p:sp><p:nvSpPr><p:cNvPr id="3" name="Text Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr>` +
	`<p:spPr><a:xfrm><a:off x="838200" y="1825625"/><a:ext cx="10515600" cy="4351338"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>` +
	`<p:txBody><a:bodyPr vert="horz" lIns="91440" tIns="45720" rIns="91440" bIns="45720" rtlCol="0"><a:normAutofit/></a:bodyPr><a:lstStyle/><a:p><a:pPr lvl="0"/><a:r><a:rPr lang="en-US"/><a:t>Click to edit Master text styles</a:t></a:r></a:p></p:txBody></p:sp>`

const textStyles = `<p:txStyles>` +
	`<p:titleStyle><a:lvl1pPr algn="l" defTabSz="914400" rtl="0" eaLnBrk="1" latinLnBrk="0" hangingPunct="1"><a:lnSpc><a:spcPct val="90000"/></a:lnSpc><a:spcBef><a:spcPct val="0"/></a:spcBef><a:buNone/>` +
	`<a:defRPr sz="4400" kern="1200"><a:solidFill><a:schemeClr val="tx1"/></a:solidFill><a:latin typeface="+mj-lt"/><a:ea typeface="+mj-ea"/><a:cs typeface="+mj-cs"/></a:defRPr></a:lvl1pPr></p:titleStyle>` +
	`<p:bodyStyle>` +
	`<a:lvl1pPr marL="228600" indent="-228600" algn="l" defTabSz="914400" rtl="0" eaLnBrk="1" latinLnBrk="0" hangingPunct="1"><a:lnSpc><a:spcPct val="90000"/></a:lnSpc><a:spcBef><a:spcPts val="1000"/></a:spcBef><a:buFont typeface="Arial"/><a:buChar char="&#8226;"/>` +
	`<a:defRPr sz="2800" kern="1200"><a:solidFill><a:schemeClr val="tx1"/></a:solidFill><a:latin typeface="+mn-lt"/><a:ea typeface="+mn-ea"/><a:cs typeface="+mn-cs"/></a:defRPr></a:lvl1pPr>` +
	`<a:lvl2pPr marL="685800" indent="-228600" algn="l" defTabSz="914400" rtl="0" eaLnBrk="1" latinLnBrk="0" hangingPunct="1"><a:lnSpc><a:spcPct val="90000"/></a:lnSpc><a:spcBef><a:spcPts val="500"/></a:spcBef><a:buFont typeface="Arial"/><a:buChar char="&#8226;"/>` +
	`<a:defRPr sz="2400" kern="1200"><a:solidFill><a:schemeClr val="tx1"/></a:solidFill><a:latin typeface="+mn-lt"/><a:ea typeface="+mn-ea"/><a:cs typeface="+mn-cs"/></a:defRPr></a:lvl2pPr>` +
	`<a:lvl3pPr marL="1143000" indent="-228600" algn="l" defTabSz="914400" rtl="0" eaLnBrk="1" latinLnBrk="0" hangingPunct="1"><a:lnSpc><a:spcPct val="90000"/></a:lnSpc><a:spcBef><a:spcPts val="500"/></a:spcBef><a:buFont typeface="Arial"/><a:buChar char="&#8226;"/>` +
	`<a:defRPr sz="2000" kern="1200"><a:solidFill><a:schemeClr val="tx1"/></a:solidFill><a:latin typeface="+mn-lt"/><a:ea typeface="+mn-ea"/><a:cs typeface="+mn-cs"/></a:defRPr></a:lvl3pPr>` +
	`</p:bodyStyle>` +
	`<p:otherStyle><a:defPPr><a:defRPr lang="en-US"/></a:defPPr></p:otherStyle>` +
	`</p:txStyles>`

const colorMap = `<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`

// layout describes one of the built-in slide layouts
type layout struct {
	Name         string
	Type         string
	Placeholders string
}

func placeholderShape(id int, name, ph string) string {
	return `<p:sp><p:nvSpPr><p:cNvPr id="` + itoa(id) + `" name="` + name + `"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr>` + ph + `</p:nvPr></p:nvSpPr>` +
		`<p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:endParaRPr lang="en-US"/></a:p></p:txBody></p:sp>`
}

// Layout names accepted by AddSlide and SetLayout
const (
	LayoutTitle         = "Title Slide"
	LayoutTitleContent  = "Title and Content"
	LayoutSectionHeader = "Section Header"
	LayoutTitleOnly     = "Title Only"
	LayoutBlank         = "Blank"
)

var layouts = []layout{
	{LayoutTitle, "title", placeholderShape(2, "Title 1", `<p:ph type="ctrTitle"/>`) + placeholderShape(3, "Subtitle 2", `<p:ph type="subTitle" idx="1"/>`)},
	{LayoutTitleContent, "obj", placeholderShape(2, "Title 1", `<p:ph type="title"/>`) + placeholderShape(3, "Content Placeholder 2", `<p:ph idx="1"/>`)},
	{LayoutSectionHeader, "secHead", placeholderShape(2, "Title 1", `<p:ph type="title"/>`) + placeholderShape(3, "Text Placeholder 2", `<p:ph type="body" idx="1"/>`)},
	{LayoutTitleOnly, "titleOnly", placeholderShape(2, "Title 1", `<p:ph type="title"/>`)},
	{LayoutBlank, "blank", ""},
}

func layoutXML(l layout) string {
	return xmlHeader + `<p:sldLayout ` + namespaces + ` type="` + l.Type + `" preserve="1"><p:cSld name="` + l.Name + `"><p:spTree>` +
		groupProperties + l.Placeholders + `</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`
}

func masterXML(layoutIDs string) string {
	return xmlHeader + `<p:sldMaster ` + namespaces + `><p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>` +
		groupProperties + masterTitle + masterBody + `</p:spTree></p:cSld>` + colorMap +
		`<p:sldLayoutIdLst>` + layoutIDs + `</p:sldLayoutIdLst>` + textStyles + `</p:sldMaster>`
}

// Theme is a colour palette and font pair
type Theme struct {
	Name      string
	Dark1     string
	Light1    string
	Dark2     string
	Light2    string
	Accents   [6]string
	Hyperlink string
	Major     string
	Minor     string
}

// Themes are the named palettes accepted by ApplyTheme
var Themes = map[string]Theme{
	"office": {Name: "Office", Dark1: "000000", Light1: "FFFFFF", Dark2: "44546A", Light2: "E7E6E6",
		Accents: [6]string{"4472C4", "ED7D31", "A5A5A5", "FFC000", "5B9BD5", "70AD47"}, Hyperlink: "0563C1", Major: "Calibri Light", Minor: "Calibri"},
	"dark": {Name: "Dark", Dark1: "FFFFFF", Light1: "1E1E1E", Dark2: "D0D0D0", Light2: "333333",
		Accents: [6]string{"4FC3F7", "FFB74D", "81C784", "E57373", "BA68C8", "FFD54F"}, Hyperlink: "80D8FF", Major: "Segoe UI Light", Minor: "Segoe UI"},
	"ocean": {Name: "Ocean", Dark1: "0B2545", Light1: "FFFFFF", Dark2: "13315C", Light2: "EEF4ED",
		Accents: [6]string{"134074", "8DA9C4", "1B98E0", "247BA0", "70C1B3", "B2DBBF"}, Hyperlink: "1B98E0", Major: "Georgia", Minor: "Verdana"},
	"forest": {Name: "Forest", Dark1: "1B2D1B", Light1: "FFFFFF", Dark2: "2D4A2D", Light2: "EFF5E9",
		Accents: [6]string{"2E7D32", "689F38", "AFB42B", "8D6E63", "558B2F", "33691E"}, Hyperlink: "2E7D32", Major: "Cambria", Minor: "Calibri"},
	"sunset": {Name: "Sunset", Dark1: "3D1308", Light1: "FFFFFF", Dark2: "7B2D26", Light2: "FFF3E6",
		Accents: [6]string{"F46036", "E71D36", "FF9F1C", "C5283D", "FFBF69", "2E294E"}, Hyperlink: "E71D36", Major: "Trebuchet MS", Minor: "Trebuchet MS"},
}

func themeXML(t Theme) string {
	color := func(tag, val string) string { return `<a:` + tag + `><a:srgbClr val="` + val + `"/></a:` + tag + `>` }
	clr := color("dk1", t.Dark1) + color("lt1", t.Light1) + color("dk2", t.Dark2) + color("lt2", t.Light2)
	for i, a := range t.Accents {
		clr += color("accent"+itoa(i+1), a)
	}
	clr += color("hlink", t.Hyperlink) + color("folHlink", "954F72")

	fill := `<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>`
	line := func(w string) string { return `<a:ln w="` + w + `" cap="flat" cmpd="sng" algn="ctr">` + fill + `<a:prstDash val="solid"/><a:miter lim="800000"/></a:ln>` }
	effect := `<a:effectStyle><a:effectLst/></a:effectStyle>`
	return xmlHeader + `<a:theme xmlns:a="` + nsA + `" name="` + t.Name + `"><a:themeElements>` +
		`<a:clrScheme name="` + t.Name + `">` + clr + `</a:clrScheme>` +
		`<a:fontScheme name="` + t.Name + `"><a:majorFont><a:latin typeface="` + t.Major + `"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
		`<a:minorFont><a:latin typeface="` + t.Minor + `"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont></a:fontScheme>` +
		`<a:fmtScheme name="` + t.Name + `"><a:fillStyleLst>` + fill + fill + fill + `</a:fillStyleLst>` +
		`<a:lnStyleLst>` + line("6350") + line("12700") + line("19050") + `</a:lnStyleLst>` +
		`<a:effectStyleLst>` + effect + effect + effect + `</a:effectStyleLst>` +
		`<a:bgFillStyleLst>` + fill + fill + fill + `</a:bgFillStyleLst></a:fmtScheme>` +
		`</a:themeElements><a:objectDefaults/><a:extraClrSchemeLst/></a:theme>`
}
