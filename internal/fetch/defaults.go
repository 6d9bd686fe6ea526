package fetch

// Built-in classification code tables, used when the code store has no
// enabled rows of the matching type. These are read-only; tests swap them per
// Resolver instance rather than mutating the package tables.

// DefaultNAICSCodes covers the industry codes the business bids under.
var DefaultNAICSCodes = []string{
	"332510", // Hardware manufacturing
	"332994", // Small arms and ordnance accessories
	"333310", // Commercial and service industry machinery
	"334511", // Search, detection, navigation instruments
	"336413", // Aircraft parts and auxiliary equipment
	"336611", // Ship building and repairing
	"423860", // Transportation equipment and supplies
	"541330", // Engineering services
}

// DefaultPSCCodes covers the product/service codes queried alongside NAICS.
var DefaultPSCCodes = []string{
	"1005", // Guns, through 30mm
	"1095", // Miscellaneous weapons
	"2350", // Combat, assault and tactical vehicles
	"5962", // Electronic modules
	"5985", // Antennas and waveguides
	"6130", // Power conversion equipment
}

// DefaultNoticeTypeLabels is the label set used when the caller supplies
// none.
var DefaultNoticeTypeLabels = []string{
	"Presolicitation",
	"Solicitation",
	"Combined Synopsis/Solicitation",
}

// NoticeTypeCodeMap maps human-readable notice type labels to the
// single-letter ptype codes the SAM.gov API expects. Labels missing from the
// map are dropped during resolution.
var NoticeTypeCodeMap = map[string]string{
	"Justification":                  "u",
	"Presolicitation":                "p",
	"Award Notice":                   "a",
	"Sources Sought":                 "r",
	"Special Notice":                 "s",
	"Solicitation":                   "o",
	"Sale of Surplus Property":       "g",
	"Combined Synopsis/Solicitation": "k",
	"Intent to Bundle Requirements":  "i",
}

// FallbackNoticeCodes is used when every supplied label maps to nothing.
var FallbackNoticeCodes = []string{"o", "p", "k"}
