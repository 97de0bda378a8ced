// Package oadr defines the OpenADR 2.0 wire payloads (oadrDistributeEvent,
// oadrCreatedEvent, oadrRequestEvent) and their namespace bindings
// (spec.md §6). Inbound element matching is by local name; Go's
// encoding/xml matches struct fields against incoming elements regardless
// of the namespace prefix a VTN happens to use. Outbound documents
// (createdEvent, requestEvent) are stamped with the profile's namespace
// map via RootName/NamespaceAttrs so they validate against a
// namespace-qualified OpenADR schema.
package oadr

import "encoding/xml"

// Profile selects the OpenADR namespace map bound at VEN construction.
type Profile string

const (
	Profile20a Profile = "2.0a"
	Profile20b Profile = "2.0b"
)

// NamespaceMap is a prefix → URI binding.
type NamespaceMap map[string]string

// NS_A is the 2.0a namespace binding (spec.md §6).
var NS_A = NamespaceMap{
	"oadr": "http://openadr.org/oadr-2.0a/2012/07",
	"pyld": "http://docs.oasis-open.org/ns/energyinterop/201110/payloads",
	"ei":   "http://docs.oasis-open.org/ns/energyinterop/201110",
	"emix": "http://docs.oasis-open.org/ns/emix/2011/06",
	"xcal": "urn:ietf:params:xml:ns:icalendar-2.0",
	"strm": "urn:ietf:params:xml:ns:icalendar-2.0:stream",
}

// NS_B is the 2.0b namespace binding: the same payload/ei/emix/xcal/strm
// URIs as 2.0a, a different oadr URI, and additional xmldsig/iso42173a/
// siscale/power/gb/atom/ccts/gml/gmlsf namespaces (spec.md §6).
var NS_B = NamespaceMap{
	"oadr":     "http://openadr.org/oadr-2.0b/2012/07",
	"pyld":     NS_A["pyld"],
	"ei":       NS_A["ei"],
	"emix":     NS_A["emix"],
	"xcal":     NS_A["xcal"],
	"strm":     NS_A["strm"],
	"dsig11":   "http://www.w3.org/2009/xmldsig11#",
	"ds":       "http://www.w3.org/2000/09/xmldsig#",
	"clm":      "urn:un:unece:uncefact:codelist:standard:5:ISO42173A:2010-04-07",
	"scale":    "http://docs.oasis-open.org/ns/emix/2011/06/siscale",
	"power":    "http://docs.oasis-open.org/ns/emix/2011/06/power",
	"gb":       "http://naesb.org/espi",
	"atom":     "http://www.w3.org/2005/Atom",
	"ccts":     "urn:un:unece:uncefact:documentation:standard:CoreComponentsTechnicalSpecification:2",
	"gml":      "http://www.opengis.net/gml/3.2",
	"gmlsf":    "http://www.opengis.net/gmlsf/2.0",
}

// NamespacesFor returns the namespace map for a profile, defaulting to 2.0a
// for any unrecognized value (mirrors the original implementation's
// safety fallback).
func NamespacesFor(profile Profile) NamespaceMap {
	if profile == Profile20b {
		return NS_B
	}
	return NS_A
}

// RootName is the xml.Name for an outbound document's root element,
// qualified with the profile's oadr namespace as its default xmlns
// (spec.md §6: namespace bindings are fixed per profile).
func RootName(ns NamespaceMap, local string) xml.Name {
	return xml.Name{Space: ns["oadr"], Local: local}
}

// NamespaceAttrs returns the remaining xmlns:prefix declarations (pyld, ei,
// emix, xcal, strm) to stamp onto an outbound document's root element
// alongside RootName's default namespace.
func NamespaceAttrs(ns NamespaceMap) []xml.Attr {
	order := []string{"pyld", "ei", "emix", "xcal", "strm"}
	attrs := make([]xml.Attr, 0, len(order))
	for _, prefix := range order {
		if uri, ok := ns[prefix]; ok {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "xmlns:" + prefix}, Value: uri})
		}
	}
	return attrs
}
