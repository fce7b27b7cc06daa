package opc

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// Part names with fixed meaning inside a package
const (
	ContentTypesPartName = "[Content_Types].xml"
	PackageRelsPartName  = "_rels/.rels"
)

// XML namespaces used by the package structure and by PresentationML parts
const (
	NamespaceContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	NamespaceRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
	NamespaceOfficeRels    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NamespacePresentation  = "http://schemas.openxmlformats.org/presentationml/2006/main"
	NamespaceDrawing       = "http://schemas.openxmlformats.org/drawingml/2006/main"
	NamespaceExtended      = "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"
	NamespaceDocPropsVT    = "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes"
	NamespacePowerPoint14  = "http://schemas.microsoft.com/office/powerpoint/2010/main"
)

// Relationship types
const (
	RelTypeOfficeDocument = NamespaceOfficeRels + "/officeDocument"
	RelTypeExtendedProps  = NamespaceOfficeRels + "/extended-properties"
	RelTypeSlide          = NamespaceOfficeRels + "/slide"
	RelTypeSlideLayout    = NamespaceOfficeRels + "/slideLayout"
	RelTypeSlideMaster    = NamespaceOfficeRels + "/slideMaster"
	RelTypeNotesSlide     = NamespaceOfficeRels + "/notesSlide"
	RelTypeNotesMaster    = NamespaceOfficeRels + "/notesMaster"
	RelTypeHandoutMaster  = NamespaceOfficeRels + "/handoutMaster"
	RelTypeTheme          = NamespaceOfficeRels + "/theme"
	RelTypeImage          = NamespaceOfficeRels + "/image"
	RelTypeFont           = NamespaceOfficeRels + "/font"
	RelTypeHyperlink      = NamespaceOfficeRels + "/hyperlink"
	RelTypePresProps      = NamespaceOfficeRels + "/presProps"
	RelTypeViewProps      = NamespaceOfficeRels + "/viewProps"
	RelTypeTableStyles    = NamespaceOfficeRels + "/tableStyles"
)

// Content types
const (
	ContentTypeRelationships = "application/vnd.openxmlformats-package.relationships+xml"
	ContentTypeXML           = "application/xml"
	ContentTypePresentation  = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ContentTypeSlide         = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ContentTypeSlideLayout   = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	ContentTypeSlideMaster   = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	ContentTypeNotesSlide    = "application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"
	ContentTypeNotesMaster   = "application/vnd.openxmlformats-officedocument.presentationml.notesMaster+xml"
	ContentTypeTheme         = "application/vnd.openxmlformats-officedocument.theme+xml"
	ContentTypeExtendedProps = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
)
