package generator

import (
	"idbridge/internal/classify"
	dErrors "idbridge/pkg/domain-errors"
)

// Fixed field markers. The technical side carries the codec version and
// machine domain; the legal side carries the legal format version.
const (
	TechnicalVersion   = "AA"
	TechnicalDomain    = "C"
	TechnicalTypeMark  = "I" // individual-type marker
	TechnicalComponent = "7" // fixed component marker
	LegalVersion       = "01"
)

// namespaceByType maps classification types to technical namespace codes.
var namespaceByType = map[classify.Type]string{
	classify.TypeServices:         "SVC",
	classify.TypeDomains:          "DOM",
	classify.TypeInfrastructure:   "INF",
	classify.TypeLegalData:        "LEG",
	classify.TypeVersionControl:   "VCS",
	classify.TypeUnstructuredData: "DOC",
}

var typeByNamespace = map[string]classify.Type{
	"SVC": classify.TypeServices,
	"DOM": classify.TypeDomains,
	"INF": classify.TypeInfrastructure,
	"LEG": classify.TypeLegalData,
	"VCS": classify.TypeVersionControl,
	"DOC": classify.TypeUnstructuredData,
}

// legalEntityByType is the forward half of the lossy bidirectional type
// mapping: four technical types collapse onto T(Thing).
var legalEntityByType = map[classify.Type]string{
	classify.TypeServices:         "T",
	classify.TypeInfrastructure:   "T",
	classify.TypeVersionControl:   "T",
	classify.TypeUnstructuredData: "T",
	classify.TypeDomains:          "L", // Location
	classify.TypeLegalData:        "P", // Person
}

// typeByLegalEntity is the documented best-effort reverse: T cannot recover
// which of its four technical types produced it, so it defaults to
// unstructured_data. Round trips are table-consistent, not byte-identical.
var typeByLegalEntity = map[string]classify.Type{
	"T": classify.TypeUnstructuredData,
	"L": classify.TypeDomains,
	"P": classify.TypeLegalData,
}

// regionByJurisdiction is a fixed small lookup; unmapped jurisdictions
// default to region N.
var regionByJurisdiction = map[string]string{
	"USA": "N", "CAN": "N", "MEX": "N",
	"GBR": "E", "DEU": "E", "FRA": "E", "ESP": "E", "ITA": "E", "NLD": "E",
	"JPN": "A", "CHN": "A", "KOR": "A", "IND": "A", "SGP": "A",
	"BRA": "S", "ARG": "S", "CHL": "S",
	"ZAF": "F", "NGA": "F", "EGY": "F",
	"AUS": "O", "NZL": "O",
}

const defaultRegion = "N"

// NamespaceFor returns the technical namespace code for a classification type.
func NamespaceFor(t classify.Type) (string, error) {
	ns, ok := namespaceByType[t]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeUnprocessable, "no namespace for classification type %q", t)
	}
	return ns, nil
}

// TypeForNamespace resolves a technical namespace code back to its
// classification type.
func TypeForNamespace(ns string) (classify.Type, error) {
	t, ok := typeByNamespace[ns]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeUnprocessable, "unknown namespace code %q", ns)
	}
	return t, nil
}

// LegalEntityFor returns the legal entity-type letter for a classification
// type (lossy forward table).
func LegalEntityFor(t classify.Type) (string, error) {
	letter, ok := legalEntityByType[t]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeUnprocessable, "no legal entity type for classification type %q", t)
	}
	return letter, nil
}

// TypeForLegalEntity is the best-effort reverse of LegalEntityFor.
func TypeForLegalEntity(letter string) (classify.Type, error) {
	t, ok := typeByLegalEntity[letter]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeUnprocessable, "unknown legal entity type %q", letter)
	}
	return t, nil
}

// RegionFor returns the region code for a jurisdiction, defaulting to N.
func RegionFor(jurisdiction string) string {
	if region, ok := regionByJurisdiction[jurisdiction]; ok {
		return region
	}
	return defaultRegion
}
