package infragraph

import (
	"sort"
	"strings"
)

// Sector is one of the four fixed infrastructure domains. The set is not
// user-editable; every node and line type belongs to exactly one sector.
type Sector string

const (
	SectorWater       Sector = "water"
	SectorElectricity Sector = "electricity"
	SectorSewage      Sector = "sewage"
	SectorPhone       Sector = "phone"
)

var allSectors = []Sector{
	SectorWater,
	SectorElectricity,
	SectorSewage,
	SectorPhone,
}

func AllSectors() []Sector {
	out := make([]Sector, len(allSectors))
	copy(out, allSectors)
	return out
}

func IsValidSector(s string) bool {
	switch Sector(NormalizeTag(s)) {
	case SectorWater, SectorElectricity, SectorSewage, SectorPhone:
		return true
	}
	return false
}

// Node type tags. The sector of a node is always derived from its type via
// SectorOfNodeType; it is never stored independently.
const (
	NodeWaterTank   = "water_tank"
	NodeWaterPump   = "water_pump"
	NodeWaterValve  = "water_valve"
	NodeWaterWell   = "water_well"
	NodeTransformer = "transformer"
	NodePole        = "pole"
	NodeGenerator   = "generator"
	NodeSubstation  = "substation"
	NodeManhole     = "manhole"
	NodeSewagePump  = "sewage_pump"
	NodeExchange    = "exchange"
	NodeCabinet     = "cabinet"
)

// Line type tags, sector-scoped like node types.
const (
	LineWaterPipeMain     = "water_pipe_main"
	LineWaterPipeBranch   = "water_pipe_branch"
	LinePowerOverhead     = "power_line_overhead"
	LinePowerUnderground  = "power_line_underground"
	LineSewerMain         = "sewer_main"
	LineSewerLateral      = "sewer_lateral"
	LinePhoneTrunk        = "phone_trunk"
	LinePhoneDistribution = "phone_distribution"
)

var nodeSectors = map[string]Sector{
	NodeWaterTank:   SectorWater,
	NodeWaterPump:   SectorWater,
	NodeWaterValve:  SectorWater,
	NodeWaterWell:   SectorWater,
	NodeTransformer: SectorElectricity,
	NodePole:        SectorElectricity,
	NodeGenerator:   SectorElectricity,
	NodeSubstation:  SectorElectricity,
	NodeManhole:     SectorSewage,
	NodeSewagePump:  SectorSewage,
	NodeExchange:    SectorPhone,
	NodeCabinet:     SectorPhone,
}

var lineSectors = map[string]Sector{
	LineWaterPipeMain:     SectorWater,
	LineWaterPipeBranch:   SectorWater,
	LinePowerOverhead:     SectorElectricity,
	LinePowerUnderground:  SectorElectricity,
	LineSewerMain:         SectorSewage,
	LineSewerLateral:      SectorSewage,
	LinePhoneTrunk:        SectorPhone,
	LinePhoneDistribution: SectorPhone,
}

// SectorOfNodeType resolves the sector a node type belongs to.
func SectorOfNodeType(typeTag string) (Sector, bool) {
	s, ok := nodeSectors[NormalizeTag(typeTag)]
	return s, ok
}

// SectorOfLineType resolves the sector a line type belongs to.
func SectorOfLineType(typeTag string) (Sector, bool) {
	s, ok := lineSectors[NormalizeTag(typeTag)]
	return s, ok
}

// SectorOf resolves either kind of type tag.
func SectorOf(typeTag string) (Sector, bool) {
	if s, ok := SectorOfNodeType(typeTag); ok {
		return s, true
	}
	return SectorOfLineType(typeTag)
}

func NodeTypesForSector(sector Sector) []string {
	return typesForSector(nodeSectors, sector)
}

func LineTypesForSector(sector Sector) []string {
	return typesForSector(lineSectors, sector)
}

func typesForSector(m map[string]Sector, sector Sector) []string {
	var out []string
	for tag, s := range m {
		if s == sector {
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
