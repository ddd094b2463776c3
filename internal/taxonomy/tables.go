package taxonomy

// CEO land-cover element labels.
const (
	CEOTrees       = "Trees_CanopyCover"
	CEOBushScrub   = "bush/scrub"
	CEOGrass       = "grass"
	CEOCultivated  = "cultivated vegetation"
	CEOTreatedPool = "Water>treated pool"
	CEOLakePond    = "Water>lake/ponded/container"
	CEORiverStream = "Water>rivers/stream"
	CEOIrrigation  = "Water>irrigation ditch"
	CEOShadow      = "shadow"
	CEOUnknown     = "unknown"
	CEOBareGround  = "Bare Ground"
	CEOBuilding    = "Building"
	CEOImpervious  = "Impervious Surface (no building)"
)

const (
	ceoTableName   = "ceo"
	worldCoverName = "worldcover"
)

// WorldCover labels as published with the ESA WorldCover v100 product.
const (
	WCTrees      = "Trees"
	WCShrubland  = "Shrubland"
	WCGrassland  = "Grassland"
	WCCropland   = "Cropland"
	WCBuiltUp    = "Built-up"
	WCBarren     = "Barren / Sparse Vegetation"
	WCSnowIce    = "Snow and Ice"
	WCOpenWater  = "Open Water"
	WCWetland    = "Herbaceous Wetland"
	WCMangroves  = "Mangroves"
	WCMossLichen = "Moss and Lichen"
)

var ceoEntries = map[string]Class{
	CEOTrees:       Trees,
	CEOBushScrub:   Shrubland,
	CEOGrass:       Grassland,
	CEOCultivated:  Cropland,
	CEOLakePond:    WaterBodies,
	CEORiverStream: WaterBodies,
	CEOIrrigation:  Wetland,
	CEOTreatedPool: WaterBodies,
	CEOBareGround:  Barren,
	CEOBuilding:    BuiltUp,
	CEOImpervious:  BuiltUp,
}

var worldCoverEntries = map[string]Class{
	WCTrees:     Trees,
	WCShrubland: Shrubland,
	WCGrassland: Grassland,
	WCCropland:  Cropland,
	WCBuiltUp:   BuiltUp,
	WCBarren:    Barren,
	WCSnowIce:   Snow,
	WCOpenWater: WaterBodies,
	WCWetland:   Wetland,
	WCMangroves: Wetland,
	// Placement is uncertain; override through the taxonomy file if needed.
	WCMossLichen: Grassland,
}

// worldCoverCodes maps raster class codes to WorldCover labels.
var worldCoverCodes = map[int]string{
	10:  WCTrees,
	20:  WCShrubland,
	30:  WCGrassland,
	40:  WCCropland,
	50:  WCBuiltUp,
	60:  WCBarren,
	70:  WCSnowIce,
	80:  WCOpenWater,
	90:  WCWetland,
	95:  WCMangroves,
	100: WCMossLichen,
}

// CEOTable returns the CEO to shared-class table.
func CEOTable() Table { return NewTable(ceoTableName, ceoEntries) }

// WorldCoverTable returns the WorldCover to shared-class table.
func WorldCoverTable() Table { return NewTable(worldCoverName, worldCoverEntries) }

// WorldCoverLabel returns the WorldCover label for a raster class code.
func WorldCoverLabel(code int) (string, bool) {
	label, ok := worldCoverCodes[code]
	if !ok {
		return "", false
	}
	return label, true
}

// WorldCoverCodes returns the known raster codes in ascending order.
func WorldCoverCodes() []int {
	return []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 100}
}
