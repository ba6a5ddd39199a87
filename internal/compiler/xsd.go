package compiler

import (
	"sort"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
)

const xsdNamespace = "http://www.w3.org/2001/XMLSchema"

// generateSchema renders the grammar as an XSD. Every element is global with
// mixed content: a repeated choice over its declared core children plus lax
// wildcards for foreign-namespace elements and attributes. Attribute values
// are plain strings; typing is the handlers' job.
func generateSchema(g map[string]*elementDef) []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	root := doc.CreateElement("xs:schema")
	root.CreateAttr("xmlns:xs", xsdNamespace)
	root.CreateAttr("xmlns:wix", Namespace)
	root.CreateAttr("targetNamespace", Namespace)
	root.CreateAttr("elementFormDefault", "qualified")

	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := g[name]
		element := root.CreateElement("xs:element")
		element.CreateAttr("name", name)

		complexType := element.CreateElement("xs:complexType")
		complexType.CreateAttr("mixed", "true")

		choice := complexType.CreateElement("xs:choice")
		choice.CreateAttr("minOccurs", "0")
		choice.CreateAttr("maxOccurs", "unbounded")
		for _, child := range def.children {
			ref := choice.CreateElement("xs:element")
			ref.CreateAttr("ref", "wix:"+child)
		}
		anyElement := choice.CreateElement("xs:any")
		anyElement.CreateAttr("namespace", "##other")
		anyElement.CreateAttr("processContents", "lax")

		for _, attr := range def.attributes {
			a := complexType.CreateElement("xs:attribute")
			a.CreateAttr("name", attr)
			a.CreateAttr("type", "xs:string")
		}
		anyAttribute := complexType.CreateElement("xs:anyAttribute")
		anyAttribute.CreateAttr("namespace", "##other")
		anyAttribute.CreateAttr("processContents", "lax")
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "rendering core schema"))
	}
	return out
}
